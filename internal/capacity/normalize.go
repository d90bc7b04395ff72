// Package capacity implements the capacity ledger's pure computation:
// document normalization, invariant scanning and mutation planning. The
// transactional application lives in the service layer; nothing here
// suspends or performs I/O.
package capacity

import (
	"math"

	"github.com/tablewise/seating/internal/domain"
)

// Normalize canonicalizes a raw capacity record into the trusted shape.
// The total is clamped at zero, the legacy count field mirrors it, and the
// per-slot breakdown is kept only when every entry is a non-negative whole
// number and the entries sum to the total. A contradictory breakdown is
// dropped whole, never partially repaired.
func Normalize(raw domain.RawCapacityDocument) domain.CapacityDocument {
	total := 0.0
	switch {
	case raw.TotalCount != nil:
		total = *raw.TotalCount
	case raw.Count != nil:
		total = *raw.Count
	}
	if !isFinite(total) || total < 0 {
		total = 0
	}
	t := int(total)

	doc := domain.CapacityDocument{
		TotalCount:          t,
		Count:               t,
		LastMutationTraceID: raw.LastMutationTraceID,
	}
	if t == 0 || raw.ByTimeSlot == nil {
		return doc
	}

	slots := make(map[string]int, len(raw.ByTimeSlot))
	sum := 0
	for k, v := range raw.ByTimeSlot {
		f, ok := numericSlotValue(v)
		if !ok {
			return doc
		}
		slots[k] = int(f)
		sum += int(f)
	}
	if sum != t {
		return doc
	}
	doc.ByTimeSlot = slots
	return doc
}

// numericSlotValue accepts a stored slot entry only when it is a finite,
// non-negative whole number
func numericSlotValue(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	if !isFinite(f) || f < 0 || f != math.Trunc(f) {
		return 0, false
	}
	return f, true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
