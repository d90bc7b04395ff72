package allocation

import (
	"github.com/tablewise/seating/internal/domain"
)

// ranker compares candidates under a strategy. The label tie-break makes the
// order total and independent of input ordering, which keeps decisions
// reproducible under replay.
type ranker struct {
	strategy  domain.AllocationStrategy
	partySize int
	zoneRanks map[string]int
}

func (r ranker) less(a, b domain.Candidate) bool {
	if r.strategy == domain.StrategyPriorityZoneFirst {
		ra, rb := zoneRank(r.zoneRanks, a.ZoneID), zoneRank(r.zoneRanks, b.ZoneID)
		if ra != rb {
			return ra < rb
		}
		sa, sb := a.Slack(r.partySize), b.Slack(r.partySize)
		if sa != sb {
			return sa < sb
		}
		return a.Label < b.Label
	}

	// bestFit and minWaste share a comparator
	sa, sb := a.Slack(r.partySize), b.Slack(r.partySize)
	if sa != sb {
		return sa < sb
	}
	if a.TotalMax != b.TotalMax {
		return a.TotalMax < b.TotalMax
	}
	return a.Label < b.Label
}

// Best returns the lowest-ranked candidate of a non-empty set without
// mutating the input slice.
func Best(candidates []domain.Candidate, strategy domain.AllocationStrategy, partySize int, zoneRanks map[string]int) domain.Candidate {
	r := ranker{strategy: strategy, partySize: partySize, zoneRanks: zoneRanks}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if r.less(c, best) {
			best = c
		}
	}
	return best
}
