package domain

import "time"

// Booking is the slice of a booking the capacity ledger cares about. The
// intake service owns the full record; this core only reads the fields
// that drive capacity and writes the embedded ledger back.
type Booking struct {
	ID        string         `json:"id"`
	UnitID    string         `json:"unit_id"`
	Status    BookingStatus  `json:"status"`
	PartySize int            `json:"party_size"`
	DateKey   string         `json:"date_key"`
	SlotKey   string         `json:"slot_key,omitempty"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Ledger    CapacityLedger `json:"ledger"`
}

// DesiredLedger is the ledger state this booking should have applied,
// given its current status and capacity-relevant fields.
func (b Booking) DesiredLedger(traceID string, now time.Time) CapacityLedger {
	return CapacityLedger{
		Applied:             b.Status.CountsTowardCapacity(),
		Key:                 b.DateKey,
		Count:               b.PartySize,
		SlotKey:             b.SlotKey,
		AppliedAt:           now,
		LastMutationTraceID: traceID,
	}
}

// Transition diffs the currently applied ledger state against the desired
// state, in the shape the mutation planner consumes.
func (b Booking) Transition(desired CapacityLedger) CapacityTransition {
	return CapacityTransition{
		OldKey:      b.Ledger.Key,
		NewKey:      desired.Key,
		OldCount:    b.Ledger.Count,
		NewCount:    desired.Count,
		OldIncluded: b.Ledger.Applied,
		NewIncluded: desired.Applied,
		OldSlotKey:  b.Ledger.SlotKey,
		NewSlotKey:  desired.SlotKey,
	}
}
