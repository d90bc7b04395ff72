package allocation

import (
	"time"

	"github.com/tablewise/seating/internal/domain"
)

// DecisionInput carries everything the engine needs for one request. The
// floorplan must already be filtered for availability by the caller.
type DecisionInput struct {
	PartySize   int
	BookingDate time.Time
	Settings    domain.SeatingSettings
	Floorplan   domain.Floorplan
}

type tier struct {
	zones  []domain.Zone
	reason domain.DecisionReason
}

// Decide runs the allocation state machine and always terminates in a typed
// decision; no branch returns an error. The engine holds no locks and
// performs no I/O.
func Decide(in DecisionInput) domain.Decision {
	settings := in.Settings
	decision := domain.Decision{
		Reason:   domain.ReasonNoFit,
		Mode:     settings.Mode,
		Strategy: settings.Strategy,
		Snapshot: domain.DecisionSnapshot{
			ZoneCount:        len(in.Floorplan.Zones),
			TableCount:       len(in.Floorplan.Tables),
			CombinationCount: len(in.Floorplan.Combinations),
		},
	}

	if !settings.AllocationEnabled {
		decision.Reason = domain.ReasonAllocationDisabled
		return decision
	}
	if in.PartySize <= 0 {
		decision.Reason = domain.ReasonInvalidPartySize
		return decision
	}

	candidates := BuildCandidates(in.PartySize, in.Floorplan, settings)
	decision.Snapshot.CandidateCount = len(candidates)
	if len(candidates) == 0 {
		decision.Reason = domain.ReasonNoFit
		return decision
	}

	ranks := ZoneRanks(settings)
	ordered := OrderZones(settings, in.Floorplan.Zones)

	if settings.Mode == domain.ModeFloorplan || settings.Mode == domain.ModeHybrid {
		primary, fallback := PartitionTiers(settings, ordered)
		tiers := []tier{
			{zones: primary, reason: domain.ReasonZoneFirst},
			{zones: fallback, reason: domain.ReasonZoneOverflow},
			{zones: EmergencyTier(settings, ordered, in.BookingDate), reason: domain.ReasonEmergencyZone},
		}
		for _, t := range tiers {
			for _, zone := range t.zones {
				zoneCands := candidatesInZone(candidates, zone.ID)
				if len(zoneCands) == 0 {
					continue
				}
				best := Best(zoneCands, settings.Strategy, in.PartySize, ranks)
				decision.ZoneID = best.ZoneID
				decision.TableIDs = best.TableIDs
				decision.Reason = t.reason
				return decision
			}
		}
		if settings.Mode == domain.ModeFloorplan {
			decision.Reason = domain.ReasonNoFit
			return decision
		}
	}

	// Mode-agnostic step: capacity mode, or hybrid after the floorplan tiers
	// are exhausted. Candidates are ranked across zones; zone rank only
	// matters as a strategy input for priorityZoneFirst.
	var nonEmergency, emergency []domain.Candidate
	for _, c := range candidates {
		if settings.Emergency.Contains(c.ZoneID) {
			emergency = append(emergency, c)
		} else {
			nonEmergency = append(nonEmergency, c)
		}
	}

	pool := candidates
	usedEmergencyFallback := false
	switch {
	case len(nonEmergency) > 0:
		pool = nonEmergency
	case settings.Emergency.EligibleOn(in.BookingDate) && len(emergency) > 0:
		pool = emergency
		usedEmergencyFallback = true
	default:
		// Some candidate exists but both preferred sets are unusable, so the
		// full set is ranked. This can seat the party in a zone the emergency
		// rule disallows for this date.
	}

	best := Best(pool, settings.Strategy, in.PartySize, ranks)
	decision.ZoneID = best.ZoneID
	decision.TableIDs = best.TableIDs
	switch {
	case usedEmergencyFallback:
		decision.Reason = domain.ReasonEmergencyZone
	case settings.Mode == domain.ModeHybrid:
		decision.Reason = domain.ReasonFloorplanFallback
	default:
		decision.Reason = domain.ReasonBestFit
	}
	return decision
}

func candidatesInZone(candidates []domain.Candidate, zoneID string) []domain.Candidate {
	var out []domain.Candidate
	for _, c := range candidates {
		if c.ZoneID == zoneID {
			out = append(out, c)
		}
	}
	return out
}
