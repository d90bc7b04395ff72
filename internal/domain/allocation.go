package domain

// DecisionReason is the closed taxonomy of terminal allocation outcomes
type DecisionReason string

// Decision reasons
const (
	ReasonZoneFirst          DecisionReason = "ZONE_FIRST"
	ReasonZoneOverflow       DecisionReason = "ZONE_OVERFLOW"
	ReasonEmergencyZone      DecisionReason = "EMERGENCY_ZONE"
	ReasonFloorplanFallback  DecisionReason = "FLOORPLAN_FALLBACK"
	ReasonBestFit            DecisionReason = "BEST_FIT"
	ReasonNoFit              DecisionReason = "NO_FIT"
	ReasonInvalidPartySize   DecisionReason = "INVALID_PARTY_SIZE"
	ReasonAllocationDisabled DecisionReason = "ALLOCATION_DISABLED"
)

// Candidate is a feasible seating option for a party: one table or one
// combination. Label is the table id, or the comma-joined id list for a
// combination, and serves as the deterministic tie-break key.
type Candidate struct {
	ZoneID   string   `json:"zone_id"`
	TableIDs []string `json:"table_ids"`
	TotalMin int      `json:"total_min"`
	TotalMax int      `json:"total_max"`
	Label    string   `json:"label"`
}

// Slack is the wasted capacity of the candidate for the given party size
func (c Candidate) Slack(partySize int) int {
	return c.TotalMax - partySize
}

// DecisionSnapshot records settings-shape counters for audit, not live data
type DecisionSnapshot struct {
	ZoneCount        int `json:"zone_count"`
	TableCount       int `json:"table_count"`
	CombinationCount int `json:"combination_count"`
	CandidateCount   int `json:"candidate_count"`
}

// Decision is the output of the allocation engine. ZoneID is empty and
// TableIDs nil for terminal outcomes without an assignment.
type Decision struct {
	ZoneID   string             `json:"zone_id,omitempty"`
	TableIDs []string           `json:"table_ids,omitempty"`
	Reason   DecisionReason     `json:"reason"`
	Mode     AllocationMode     `json:"allocation_mode"`
	Strategy AllocationStrategy `json:"allocation_strategy"`
	Snapshot DecisionSnapshot   `json:"snapshot"`
}

// Assigned reports whether the decision carries a concrete seating assignment
func (d Decision) Assigned() bool {
	return d.ZoneID != "" && len(d.TableIDs) > 0
}

// AllocationRecord is the audit summary of a decision, persisted with a
// deterministic event id so retried writes are idempotent upserts.
type AllocationRecord struct {
	EventID                string             `json:"event_id"`
	UnitID                 string             `json:"unit_id"`
	BookingID              string             `json:"booking_id"`
	ZoneID                 string             `json:"zone_id"`
	TableIDs               []string           `json:"table_ids"`
	TraceID                string             `json:"trace_id"`
	DecidedAtMs            int64              `json:"decided_at_ms"`
	Strategy               AllocationStrategy `json:"strategy"`
	DiagnosticsSummary     string             `json:"diagnostics_summary"`
	ComputedForStartTimeMs int64              `json:"computed_for_start_time_ms"`
	ComputedForEndTimeMs   int64              `json:"computed_for_end_time_ms"`
	ComputedForHeadcount   int                `json:"computed_for_headcount"`
	AlgoVersion            string             `json:"algo_version"`
}
