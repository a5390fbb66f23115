package parking

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ParkingLot owns the slot table and the pooled balance. Every mutating
// operation is a single atomic step under the aggregate mutex: the
// precondition check and the state change happen together, and a failed
// precondition leaves all state untouched.
//
// Balance is the current liquid pool; TotalProfits is the lifetime
// revenue ledger. They diverge once revenue is swept or distributed.
type ParkingLot struct {
	mu sync.RWMutex

	id           uuid.UUID
	admin        Identity
	slots        map[int]*Slot
	nextSlot     int
	balance      int64
	totalProfits int64
	policy       FeePolicy
	holdWindow   int64
	clock        Clock
	records      []PaymentRecord
}

// LotInfo is the read-only view of the aggregate.
type LotInfo struct {
	ID           uuid.UUID `json:"id"`
	Admin        Identity  `json:"admin"`
	Slots        int       `json:"slots"`
	Balance      int64     `json:"balance"`
	TotalProfits int64     `json:"total_profits"`
}

// SlotInfo is the read-only view of one slot.
type SlotInfo struct {
	Number        int        `json:"number"`
	Owner         Identity   `json:"owner,omitempty"`
	Status        SlotStatus `json:"status"`
	CurrentUser   Identity   `json:"current_user,omitempty"`
	StartTime     int64      `json:"start_time,omitempty"`
	EndTime       int64      `json:"end_time,omitempty"`
	AccruedProfit int64      `json:"accrued_profit"`
}

// InitializeFacility creates the lot and issues the one admin capability
// bound to it. The capability is the only proof of administrative
// authority; the admin identity alone never authorizes anything.
func InitializeFacility(caller Identity, policy FeePolicy, holdWindow int64, clock Clock) (*AdminCapability, *ParkingLot) {
	if clock == nil {
		clock = SystemClock()
	}
	lot := &ParkingLot{
		id:         uuid.New(),
		admin:      caller,
		slots:      make(map[int]*Slot),
		nextSlot:   1,
		policy:     policy,
		holdWindow: holdWindow,
		clock:      clock,
	}
	cap := &AdminCapability{
		lotID:  lot.id,
		holder: caller,
		nonce:  uuid.New(),
	}
	return cap, lot
}

func (pl *ParkingLot) ID() uuid.UUID {
	return pl.id
}

// CreateSlot provisions a new vacant slot. Admin capability required;
// owner designates the slot-level revenue beneficiary and may be empty.
func (pl *ParkingLot) CreateSlot(cap *AdminCapability, caller, owner Identity) (int, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if !cap.authorizes(pl.id, caller) {
		return 0, ErrUnauthorized
	}
	number := pl.nextSlot
	pl.nextSlot++
	pl.slots[number] = NewSlot(number, owner)
	return number, nil
}

// Reserve holds a vacant slot for user.
func (pl *ParkingLot) Reserve(slotNumber int, user Identity) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	slot, ok := pl.slots[slotNumber]
	if !ok {
		return ErrSlotNotFound
	}
	return slot.reserve(user, pl.clock.Now())
}

// Enter begins the billable occupancy for user.
func (pl *ParkingLot) Enter(slotNumber int, user Identity) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	slot, ok := pl.slots[slotNumber]
	if !ok {
		return ErrSlotNotFound
	}
	return slot.enter(user, pl.clock.Now(), pl.holdWindow)
}

// Exit settles the occupancy: the fee is taken from the payer's wallet,
// deposited into the pool, counted into lifetime profits, and receipted.
// The wallet debit is the last fallible step, so an insufficient balance
// aborts with the slot still occupied.
func (pl *ParkingLot) Exit(slotNumber int, user Identity, payer *Wallet) (PaymentRecord, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	slot, ok := pl.slots[slotNumber]
	if !ok {
		return PaymentRecord{}, ErrSlotNotFound
	}
	if slot.Status != StatusOccupied {
		return PaymentRecord{}, ErrSlotNotOccupied
	}
	if slot.CurrentUser != user {
		return PaymentRecord{}, ErrUnauthorized
	}

	now := pl.clock.Now()
	fee := pl.policy.Fee(HoursBetween(slot.StartTime, now))
	if err := payer.Take(fee); err != nil {
		return PaymentRecord{}, err
	}

	slot.settle(now)
	pl.balance += fee
	pl.totalProfits += fee
	slot.AccruedProfit += fee

	record := newPaymentRecord(slotNumber, user, fee, now)
	pl.records = append(pl.records, record)
	return record, nil
}

// Withdraw is the capped emergency withdrawal: at most one tenth of
// lifetime profits per call. It decrements both the pool and the
// lifetime ledger; per-slot accrued figures stay untouched.
func (pl *ParkingLot) Withdraw(cap *AdminCapability, caller Identity, amount int64, dest *Wallet) (int64, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if !cap.authorizes(pl.id, caller) {
		return 0, ErrUnauthorized
	}
	if amount <= 0 || amount > pl.totalProfits/10 || amount > pl.balance {
		return 0, ErrInsufficientFunds
	}
	pl.balance -= amount
	pl.totalProfits -= amount
	dest.Deposit(amount)
	return amount, nil
}

// Sweep drains the entire pool to the admin's wallet. A cash movement,
// not a ledger reversal: lifetime profits are unchanged.
func (pl *ParkingLot) Sweep(cap *AdminCapability, caller Identity, dest *Wallet) (int64, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if !cap.authorizes(pl.id, caller) {
		return 0, ErrUnauthorized
	}
	amount := pl.balance
	pl.balance = 0
	dest.Deposit(amount)
	return amount, nil
}

// Distribute splits the pool 10% to the admin and 80% to the slot's
// registered owner. Integer division leaves a remainder in the pool:
// distributing 101 pays 10 + 80 and retains 11. That rounding loss is
// the documented policy, asserted by tests.
//
// Authorization scope differs from Withdraw/Sweep: the caller must be
// the slot owner, not the capability holder.
func (pl *ParkingLot) Distribute(slotNumber int, caller Identity, adminDest, ownerDest *Wallet) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	slot, ok := pl.slots[slotNumber]
	if !ok {
		return ErrSlotNotFound
	}
	if slot.Owner == "" || slot.Owner != caller {
		return ErrUnauthorized
	}

	adminShare := pl.balance / 10
	ownerShare := pl.balance * 8 / 10
	pl.balance -= adminShare + ownerShare
	adminDest.Deposit(adminShare)
	ownerDest.Deposit(ownerShare)
	return nil
}

// Info returns the lot-level read view.
func (pl *ParkingLot) Info() LotInfo {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return LotInfo{
		ID:           pl.id,
		Admin:        pl.admin,
		Slots:        len(pl.slots),
		Balance:      pl.balance,
		TotalProfits: pl.totalProfits,
	}
}

// SlotInfo returns the read view of one slot.
func (pl *ParkingLot) SlotInfo(slotNumber int) (SlotInfo, error) {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	slot, ok := pl.slots[slotNumber]
	if !ok {
		return SlotInfo{}, ErrSlotNotFound
	}
	return SlotInfo{
		Number:        slot.Number,
		Owner:         slot.Owner,
		Status:        slot.Status,
		CurrentUser:   slot.CurrentUser,
		StartTime:     slot.StartTime,
		EndTime:       slot.EndTime,
		AccruedProfit: slot.AccruedProfit,
	}, nil
}

// Status lists every slot ordered by number.
func (pl *ParkingLot) Status() []SlotInfo {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	infos := make([]SlotInfo, 0, len(pl.slots))
	for _, slot := range pl.slots {
		infos = append(infos, SlotInfo{
			Number:        slot.Number,
			Owner:         slot.Owner,
			Status:        slot.Status,
			CurrentUser:   slot.CurrentUser,
			StartTime:     slot.StartTime,
			EndTime:       slot.EndTime,
			AccruedProfit: slot.AccruedProfit,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Number < infos[j].Number
	})
	return infos
}

// Records returns the receipts archived so far. Admin capability
// required: receipts name payers.
func (pl *ParkingLot) Records(cap *AdminCapability, caller Identity) ([]PaymentRecord, error) {
	pl.mu.RLock()
	defer pl.mu.RUnlock()

	if !cap.authorizes(pl.id, caller) {
		return nil, ErrUnauthorized
	}
	out := make([]PaymentRecord, len(pl.records))
	copy(out, pl.records)
	return out, nil
}
