package parking

import (
	"errors"
	"testing"
)

const hour = int64(millisPerHour)

func TestNewSlot(t *testing.T) {
	slot := NewSlot(1, "owner-a")

	if slot.Number != 1 {
		t.Errorf("Expected slot number 1, got %d", slot.Number)
	}
	if slot.Status != StatusVacant {
		t.Errorf("Expected new slot to be vacant, got %s", slot.Status)
	}
	if slot.CurrentUser != "" {
		t.Errorf("Expected new slot to have no user, got %s", slot.CurrentUser)
	}
	if slot.Owner != "owner-a" {
		t.Errorf("Expected owner-a, got %s", slot.Owner)
	}
}

func TestSlotReserveThenEnter(t *testing.T) {
	slot := NewSlot(1, "")

	if err := slot.reserve("alice", 1000); err != nil {
		t.Errorf("Unexpected error: %s", err.Error())
	}
	if slot.Status != StatusReserved {
		t.Errorf("Expected reserved status, got %s", slot.Status)
	}
	if slot.CurrentUser != "alice" {
		t.Errorf("Expected alice to hold the reservation, got %s", slot.CurrentUser)
	}

	if err := slot.enter("alice", 1000+2*hour, 4*hour); err != nil {
		t.Errorf("Unexpected error: %s", err.Error())
	}
	if slot.Status != StatusOccupied {
		t.Errorf("Expected occupied status, got %s", slot.Status)
	}
	if slot.StartTime != 1000+2*hour {
		t.Errorf("Expected start time at entry, got %d", slot.StartTime)
	}
}

func TestSlotReserveOccupiedFails(t *testing.T) {
	slot := NewSlot(1, "")
	slot.reserve("alice", 0)

	if err := slot.reserve("bob", 0); !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("Expected ErrSlotUnavailable, got %v", err)
	}
	if slot.CurrentUser != "alice" {
		t.Errorf("Expected alice to keep the slot, got %s", slot.CurrentUser)
	}
}

func TestSlotEnterWrongUser(t *testing.T) {
	slot := NewSlot(1, "")
	slot.reserve("alice", 0)

	if err := slot.enter("bob", hour, 4*hour); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
	if slot.Status != StatusReserved {
		t.Errorf("Expected slot to stay reserved, got %s", slot.Status)
	}
}

func TestSlotEnterAfterHoldWindow(t *testing.T) {
	slot := NewSlot(1, "")
	slot.reserve("alice", 0)

	if err := slot.enter("alice", 4*hour+1, 4*hour); !errors.Is(err, ErrHoldExpired) {
		t.Errorf("Expected ErrHoldExpired, got %v", err)
	}

	// Exactly at the window boundary is still admissible.
	if err := slot.enter("alice", 4*hour, 4*hour); err != nil {
		t.Errorf("Unexpected error at window boundary: %v", err)
	}
}

func TestSlotEnterOccupiedFails(t *testing.T) {
	slot := NewSlot(1, "")
	slot.enter("alice", 0, 4*hour)

	if err := slot.enter("bob", hour, 4*hour); !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("Expected ErrSlotUnavailable, got %v", err)
	}
	if slot.CurrentUser != "alice" {
		t.Errorf("Expected alice to keep the slot, got %s", slot.CurrentUser)
	}
}

func TestSlotExit(t *testing.T) {
	slot := NewSlot(1, "")
	slot.enter("alice", 0, 4*hour)

	fee, err := slot.exit("alice", 5*hour, FlatRate{Base: 3})
	if err != nil {
		t.Errorf("Unexpected error: %s", err.Error())
	}
	if fee != 15 {
		t.Errorf("Expected fee 15, got %d", fee)
	}
	if slot.Status != StatusVacant {
		t.Errorf("Expected vacant status after exit, got %s", slot.Status)
	}
	if slot.CurrentUser != "" {
		t.Errorf("Expected no user after exit, got %s", slot.CurrentUser)
	}
	if slot.EndTime != 5*hour {
		t.Errorf("Expected end time recorded, got %d", slot.EndTime)
	}
}

func TestSlotExitWrongUser(t *testing.T) {
	slot := NewSlot(1, "")
	slot.enter("alice", 0, 4*hour)

	if _, err := slot.exit("mallory", hour, FlatRate{Base: 3}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
	if slot.Status != StatusOccupied {
		t.Errorf("Expected slot to stay occupied, got %s", slot.Status)
	}
}

func TestSlotExitVacantFails(t *testing.T) {
	slot := NewSlot(1, "")

	if _, err := slot.exit("alice", hour, FlatRate{Base: 3}); !errors.Is(err, ErrSlotNotOccupied) {
		t.Errorf("Expected ErrSlotNotOccupied, got %v", err)
	}
}
