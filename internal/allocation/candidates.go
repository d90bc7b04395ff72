// Package allocation implements the seating allocation decision engine:
// candidate generation, zone-ordering policy, strategy ranking and the tiered
// fallback state machine. Everything in this package is a pure function of
// its inputs; identical inputs always produce identical output.
package allocation

import (
	"strings"

	"github.com/tablewise/seating/internal/domain"
)

// BuildCandidates enumerates the feasible single-table and combination
// options for a party. Tables and combinations are expected to be
// pre-filtered for time-overlap availability by the caller; this function
// only applies geometric and configuration rules.
func BuildCandidates(partySize int, fp domain.Floorplan, settings domain.SeatingSettings) []domain.Candidate {
	activeZones := make(map[string]domain.Zone, len(fp.Zones))
	for _, z := range fp.Zones {
		if z.IsActive {
			activeZones[z.ID] = z
		}
	}
	tables := make(map[string]domain.Table, len(fp.Tables))
	for _, t := range fp.Tables {
		tables[t.ID] = t
	}

	var out []domain.Candidate
	for _, t := range fp.Tables {
		if c, ok := singleTableCandidate(partySize, t, activeZones, settings); ok {
			out = append(out, c)
		}
	}
	if settings.MaxCombineCount < 2 {
		return out
	}
	for _, combo := range fp.Combinations {
		if c, ok := combinationCandidate(partySize, combo, tables, activeZones, settings); ok {
			out = append(out, c)
		}
	}
	return out
}

func singleTableCandidate(partySize int, t domain.Table, activeZones map[string]domain.Zone, settings domain.SeatingSettings) (domain.Candidate, bool) {
	if !t.IsActive {
		return domain.Candidate{}, false
	}
	if _, ok := activeZones[t.ZoneID]; !ok {
		return domain.Candidate{}, false
	}
	maxCap := t.EffectiveMaxCapacity()
	if partySize > maxCap {
		return domain.Candidate{}, false
	}
	minCap := t.EffectiveMinCapacity()
	soloBypass := partySize == 1 && (t.CanSeatSolo || settings.IsSoloAllowedTable(t.ID))
	if partySize < minCap && !soloBypass {
		return domain.Candidate{}, false
	}
	return domain.Candidate{
		ZoneID:   t.ZoneID,
		TableIDs: []string{t.ID},
		TotalMin: minCap,
		TotalMax: maxCap,
		Label:    t.ID,
	}, true
}

func combinationCandidate(partySize int, combo domain.TableCombination, tables map[string]domain.Table, activeZones map[string]domain.Zone, settings domain.SeatingSettings) (domain.Candidate, bool) {
	if !combo.IsActive {
		return domain.Candidate{}, false
	}
	if len(combo.TableIDs) < 2 || len(combo.TableIDs) > settings.MaxCombineCount {
		return domain.Candidate{}, false
	}

	totalMin, totalMax := 0, 0
	var zoneIDs []string
	seenZones := make(map[string]bool)
	anchorZone := ""
	for i, id := range combo.TableIDs {
		t, ok := tables[id]
		if !ok {
			// Missing member table: the combination is stale, reject it
			return domain.Candidate{}, false
		}
		totalMin += t.EffectiveMinCapacity()
		totalMax += t.EffectiveMaxCapacity()
		if i == 0 {
			anchorZone = t.ZoneID
		}
		if t.ZoneID != "" && !seenZones[t.ZoneID] {
			seenZones[t.ZoneID] = true
			zoneIDs = append(zoneIDs, t.ZoneID)
		}
	}
	if len(zoneIDs) == 0 {
		return domain.Candidate{}, false
	}
	if len(zoneIDs) > 1 && !settings.AllowCrossZoneCombinations {
		return domain.Candidate{}, false
	}
	// Every member zone must resolve to an active zone, cross-zone or not
	for _, zid := range zoneIDs {
		if _, ok := activeZones[zid]; !ok {
			return domain.Candidate{}, false
		}
	}
	if partySize < totalMin || partySize > totalMax {
		return domain.Candidate{}, false
	}
	return domain.Candidate{
		ZoneID:   anchorZone,
		TableIDs: combo.TableIDs,
		TotalMin: totalMin,
		TotalMax: totalMax,
		Label:    strings.Join(combo.TableIDs, ","),
	}, true
}
