package parking

// SlotStatus is the occupancy state of a single parking space.
type SlotStatus string

const (
	StatusVacant   SlotStatus = "vacant"
	StatusReserved SlotStatus = "reserved"
	StatusOccupied SlotStatus = "occupied"
)

// Slot is one parking space. Slots are permanent infrastructure: exit
// resets the state but identity, owner and accrued profit survive.
//
// Invariant: StatusVacant implies CurrentUser == "" and the timestamps
// are stale; StatusReserved/StatusOccupied hold exactly one user.
type Slot struct {
	Number        int
	Owner         Identity
	Status        SlotStatus
	CurrentUser   Identity
	ReservedAt    int64
	StartTime     int64
	EndTime       int64
	AccruedProfit int64
}

func NewSlot(number int, owner Identity) *Slot {
	return &Slot{
		Number: number,
		Owner:  owner,
		Status: StatusVacant,
	}
}

// reserve holds a vacant slot for user. The hold is pre-authorized: the
// billable window only opens on enter.
func (s *Slot) reserve(user Identity, now int64) error {
	if s.Status != StatusVacant {
		return ErrSlotUnavailable
	}
	s.Status = StatusReserved
	s.CurrentUser = user
	s.ReservedAt = now
	return nil
}

// enter occupies a vacant slot, or confirms the caller's own reservation
// while it is still inside the hold window.
func (s *Slot) enter(user Identity, now, holdWindow int64) error {
	switch s.Status {
	case StatusVacant:
	case StatusReserved:
		if s.CurrentUser != user {
			return ErrUnauthorized
		}
		if now-s.ReservedAt > holdWindow {
			return ErrHoldExpired
		}
	default:
		return ErrSlotUnavailable
	}
	s.Status = StatusOccupied
	s.CurrentUser = user
	s.StartTime = now
	return nil
}

// exit closes the occupancy and returns the accrued fee. Only the
// current occupant may exit; a third party must not be able to close
// out and re-price someone else's session.
func (s *Slot) exit(user Identity, now int64, policy FeePolicy) (int64, error) {
	if s.Status != StatusOccupied {
		return 0, ErrSlotNotOccupied
	}
	if s.CurrentUser != user {
		return 0, ErrUnauthorized
	}
	fee := policy.Fee(HoursBetween(s.StartTime, now))
	s.settle(now)
	return fee, nil
}

// settle finalizes an already-validated exit.
func (s *Slot) settle(now int64) {
	s.EndTime = now
	s.Status = StatusVacant
	s.CurrentUser = ""
}

// Occupied reports whether the slot currently holds a user.
func (s *Slot) Occupied() bool {
	return s.Status == StatusOccupied
}
