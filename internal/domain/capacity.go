package domain

import "time"

// BookingStatus is the lifecycle status of a booking as reported by the
// intake service
type BookingStatus string

// Booking statuses
const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusPending   BookingStatus = "pending"
	StatusApproved  BookingStatus = "approved"
	StatusAccepted  BookingStatus = "accepted"
	StatusCancelled BookingStatus = "cancelled"
	StatusDeclined  BookingStatus = "declined"
	StatusNoShow    BookingStatus = "no_show"
)

// CountsTowardCapacity reports whether a booking in this status is included
// in the aggregate headcount. Unknown and empty statuses are excluded.
func (s BookingStatus) CountsTowardCapacity() bool {
	switch s {
	case StatusConfirmed, StatusPending, StatusApproved, StatusAccepted:
		return true
	}
	return false
}

// CapacityDocument is the canonical aggregate of booked headcount for one
// unit and date key. Count mirrors TotalCount for legacy readers. ByTimeSlot,
// when present, must sum to TotalCount; a zero total carries no slot map.
type CapacityDocument struct {
	TotalCount          int            `json:"total_count"`
	Count               int            `json:"count"`
	ByTimeSlot          map[string]int `json:"by_time_slot,omitempty"`
	LastMutationTraceID string         `json:"last_mutation_trace_id,omitempty"`
}

// RawCapacityDocument is a capacity document as stored, before normalization.
// Numeric fields are pointers and slot values untyped because historical
// writers produced missing, negative, and non-integer values.
type RawCapacityDocument struct {
	TotalCount          *float64       `json:"total_count,omitempty"`
	Count               *float64       `json:"count,omitempty"`
	ByTimeSlot          map[string]any `json:"by_time_slot,omitempty"`
	LastMutationTraceID string         `json:"last_mutation_trace_id,omitempty"`
}

// Raw converts a canonical document back to the raw shape, mainly for
// re-running normalization after applying deltas
func (d CapacityDocument) Raw() RawCapacityDocument {
	total := float64(d.TotalCount)
	count := float64(d.Count)
	raw := RawCapacityDocument{
		TotalCount:          &total,
		Count:               &count,
		LastMutationTraceID: d.LastMutationTraceID,
	}
	if d.ByTimeSlot != nil {
		raw.ByTimeSlot = make(map[string]any, len(d.ByTimeSlot))
		for k, v := range d.ByTimeSlot {
			raw.ByTimeSlot[k] = float64(v)
		}
	}
	return raw
}

// CapacityLedger is the embedded per-booking record of what was last actually
// applied to the aggregate. Ledger transitions are diffed against this state,
// never against the booking's raw field history.
type CapacityLedger struct {
	Applied             bool      `json:"applied"`
	Key                 string    `json:"key,omitempty"`
	Count               int       `json:"count,omitempty"`
	SlotKey             string    `json:"slot_key,omitempty"`
	AppliedAt           time.Time `json:"applied_at,omitempty"`
	LastMutationTraceID string    `json:"last_mutation_trace_id,omitempty"`
}

// CapacityTransition describes a booking's capacity-relevant state before and
// after a change. Create, modify, cancel and status changes all reduce to
// this shape.
type CapacityTransition struct {
	OldKey      string
	NewKey      string
	OldCount    int
	NewCount    int
	OldIncluded bool
	NewIncluded bool
	OldSlotKey  string
	NewSlotKey  string
}

// MutationEntry is one signed delta against a single capacity document.
// SlotDeltas is nil when the transition carries no slot-level information.
type MutationEntry struct {
	Key        string         `json:"key"`
	TotalDelta int            `json:"total_delta"`
	SlotDeltas map[string]int `json:"slot_deltas,omitempty"`
}
