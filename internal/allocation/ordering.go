package allocation

import (
	"math"
	"sort"
	"time"

	"github.com/tablewise/seating/internal/domain"
)

const unrankedZone = math.MaxInt32

// ZoneRanks builds the zoneId → rank map from the explicit priority list.
// Listed zones get their list index; everything else ranks last.
func ZoneRanks(settings domain.SeatingSettings) map[string]int {
	ranks := make(map[string]int, len(settings.ZonePriority))
	for i, id := range settings.ZonePriority {
		if _, ok := ranks[id]; !ok {
			ranks[id] = i
		}
	}
	return ranks
}

func zoneRank(ranks map[string]int, zoneID string) int {
	if r, ok := ranks[zoneID]; ok {
		return r
	}
	return unrankedZone
}

// OrderZones returns the active zones in evaluation order. With an explicit
// priority list the listed zones come first in list order, then the remaining
// active zones in their original order. Without a list, the default zone
// leads and the rest keep their original order (stable sort on rank).
func OrderZones(settings domain.SeatingSettings, zones []domain.Zone) []domain.Zone {
	active := make([]domain.Zone, 0, len(zones))
	for _, z := range zones {
		if z.IsActive {
			active = append(active, z)
		}
	}

	if len(settings.ZonePriority) > 0 {
		byID := make(map[string]domain.Zone, len(active))
		for _, z := range active {
			byID[z.ID] = z
		}
		ordered := make([]domain.Zone, 0, len(active))
		listed := make(map[string]bool, len(settings.ZonePriority))
		for _, id := range settings.ZonePriority {
			if listed[id] {
				continue
			}
			listed[id] = true
			if z, ok := byID[id]; ok {
				ordered = append(ordered, z)
			}
		}
		for _, z := range active {
			if !listed[z.ID] {
				ordered = append(ordered, z)
			}
		}
		return ordered
	}

	ranks := ZoneRanks(settings)
	ordered := make([]domain.Zone, len(active))
	copy(ordered, active)
	sort.SliceStable(ordered, func(i, j int) bool {
		if (ordered[i].ID == settings.DefaultZoneID) != (ordered[j].ID == settings.DefaultZoneID) {
			return ordered[i].ID == settings.DefaultZoneID
		}
		return zoneRank(ranks, ordered[i].ID) < zoneRank(ranks, ordered[j].ID)
	})
	return ordered
}

// PartitionTiers splits ordered zones into primary and fallback tiers,
// preserving relative order. Zones in the emergency set belong to neither
// tier; they are evaluated separately when eligible.
func PartitionTiers(settings domain.SeatingSettings, ordered []domain.Zone) (primary, fallback []domain.Zone) {
	for _, z := range ordered {
		if settings.Emergency.Contains(z.ID) {
			continue
		}
		if settings.IsOverflowZone(z.ID) {
			fallback = append(fallback, z)
		} else {
			primary = append(primary, z)
		}
	}
	return primary, fallback
}

// EmergencyTier returns the ordered emergency zones for the booking date, or
// nil when the emergency rule does not activate them. An inactive rule makes
// emergency zones unusable in every tier for this request.
func EmergencyTier(settings domain.SeatingSettings, ordered []domain.Zone, bookingDate time.Time) []domain.Zone {
	if !settings.Emergency.EligibleOn(bookingDate) {
		return nil
	}
	var tier []domain.Zone
	for _, z := range ordered {
		if settings.Emergency.Contains(z.ID) {
			tier = append(tier, z)
		}
	}
	return tier
}
