package parking

import "github.com/google/uuid"

// PaymentRecord is the immutable receipt emitted for one completed
// occupancy. Never mutated after creation; the lot archives a copy for
// the administrator and Exit returns one to the caller.
type PaymentRecord struct {
	ID         uuid.UUID `json:"id"`
	SlotNumber int       `json:"slot_number"`
	Payer      Identity  `json:"payer"`
	Amount     int64     `json:"amount"`
	PaidAt     int64     `json:"paid_at"`
}

func newPaymentRecord(slotNumber int, payer Identity, amount, paidAt int64) PaymentRecord {
	return PaymentRecord{
		ID:         uuid.New(),
		SlotNumber: slotNumber,
		Payer:      payer,
		Amount:     amount,
		PaidAt:     paidAt,
	}
}
