package capacity

import "github.com/tablewise/seating/internal/domain"

// PlanMutations computes the minimal set of signed deltas a capacity
// transition requires, grouped per date key. The old applied state is
// subtracted and the new desired state added; entries that net to zero are
// dropped. A blank slot key contributes no slot-level delta, only the
// day-level total. A slot move on the same day keeps the two slot deltas
// even when the day total nets to zero.
func PlanMutations(t domain.CapacityTransition) []domain.MutationEntry {
	type accumulator struct {
		total int
		slots map[string]int
	}
	byKey := make(map[string]*accumulator)
	var order []string

	add := func(key, slotKey string, delta int) {
		if key == "" {
			return
		}
		acc, ok := byKey[key]
		if !ok {
			acc = &accumulator{slots: make(map[string]int)}
			byKey[key] = acc
			order = append(order, key)
		}
		acc.total += delta
		if slotKey != "" {
			acc.slots[slotKey] += delta
		}
	}

	if t.OldIncluded {
		add(t.OldKey, t.OldSlotKey, -t.OldCount)
	}
	if t.NewIncluded {
		add(t.NewKey, t.NewSlotKey, t.NewCount)
	}

	var entries []domain.MutationEntry
	for _, key := range order {
		acc := byKey[key]
		var slotDeltas map[string]int
		for slot, delta := range acc.slots {
			if delta == 0 {
				continue
			}
			if slotDeltas == nil {
				slotDeltas = make(map[string]int)
			}
			slotDeltas[slot] = delta
		}
		if acc.total == 0 && slotDeltas == nil {
			continue
		}
		entries = append(entries, domain.MutationEntry{
			Key:        key,
			TotalDelta: acc.total,
			SlotDeltas: slotDeltas,
		})
	}
	return entries
}

// ApplyEntry applies one mutation entry to a normalized document and returns
// the re-normalized result. The total clamps at zero; a document that
// reaches zero drops its slot breakdown entirely. Slot values clamp at zero
// individually, and a breakdown that no longer sums to the total is dropped
// by the re-normalization rather than patched.
func ApplyEntry(doc domain.CapacityDocument, entry domain.MutationEntry) domain.CapacityDocument {
	doc.TotalCount += entry.TotalDelta
	if doc.TotalCount < 0 {
		doc.TotalCount = 0
	}
	doc.Count = doc.TotalCount

	if doc.TotalCount == 0 {
		doc.ByTimeSlot = nil
		return Normalize(doc.Raw())
	}

	if len(entry.SlotDeltas) > 0 {
		if doc.ByTimeSlot == nil {
			doc.ByTimeSlot = make(map[string]int, len(entry.SlotDeltas))
		}
		for slot, delta := range entry.SlotDeltas {
			next := doc.ByTimeSlot[slot] + delta
			if next <= 0 {
				delete(doc.ByTimeSlot, slot)
				continue
			}
			doc.ByTimeSlot[slot] = next
		}
		if len(doc.ByTimeSlot) == 0 {
			doc.ByTimeSlot = nil
		}
	}
	return Normalize(doc.Raw())
}
