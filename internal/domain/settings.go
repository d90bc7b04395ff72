package domain

import "time"

// AllocationMode selects how the decision engine searches for a fit
type AllocationMode string

// Allocation modes
const (
	ModeCapacity  AllocationMode = "capacity"
	ModeFloorplan AllocationMode = "floorplan"
	ModeHybrid    AllocationMode = "hybrid"
)

// Valid reports whether the mode is one of the known values
func (m AllocationMode) Valid() bool {
	switch m {
	case ModeCapacity, ModeFloorplan, ModeHybrid:
		return true
	}
	return false
}

// AllocationStrategy selects the candidate ranking comparator
type AllocationStrategy string

// Allocation strategies
const (
	StrategyBestFit           AllocationStrategy = "bestFit"
	StrategyMinWaste          AllocationStrategy = "minWaste"
	StrategyPriorityZoneFirst AllocationStrategy = "priorityZoneFirst"
)

// Valid reports whether the strategy is one of the known values
func (s AllocationStrategy) Valid() bool {
	switch s {
	case StrategyBestFit, StrategyMinWaste, StrategyPriorityZoneFirst:
		return true
	}
	return false
}

// EmergencyRule controls when emergency zones become eligible
type EmergencyRule string

// Emergency activation rules
const (
	EmergencyAlways    EmergencyRule = "always"
	EmergencyByWeekday EmergencyRule = "byWeekday"
)

// EmergencyZones configures last-resort zones and their activation rule
type EmergencyZones struct {
	Enabled    bool           `json:"enabled"`
	ZoneIDs    []string       `json:"zone_ids,omitempty"`
	ActiveRule EmergencyRule  `json:"active_rule,omitempty"`
	Weekdays   []time.Weekday `json:"weekdays,omitempty"`
}

// EligibleOn reports whether emergency zones may be used for a booking on the given date
func (e EmergencyZones) EligibleOn(date time.Time) bool {
	if !e.Enabled {
		return false
	}
	switch e.ActiveRule {
	case EmergencyAlways:
		return true
	case EmergencyByWeekday:
		wd := date.Weekday()
		for _, d := range e.Weekdays {
			if d == wd {
				return true
			}
		}
	}
	return false
}

// Contains reports whether the zone id is part of the emergency set
func (e EmergencyZones) Contains(zoneID string) bool {
	for _, id := range e.ZoneIDs {
		if id == zoneID {
			return true
		}
	}
	return false
}

// SeatingSettings is the per-unit allocation configuration.
// Load it through the settings repository, which merges stored values over
// DefaultSeatingSettings once; code downstream never applies fallbacks.
type SeatingSettings struct {
	AllocationEnabled          bool               `json:"allocation_enabled"`
	Mode                       AllocationMode     `json:"allocation_mode"`
	Strategy                   AllocationStrategy `json:"allocation_strategy"`
	ZonePriority               []string           `json:"zone_priority,omitempty"`
	OverflowZones              []string           `json:"overflow_zones,omitempty"`
	Emergency                  EmergencyZones     `json:"emergency_zones"`
	MaxCombineCount            int                `json:"max_combine_count"`
	AllowCrossZoneCombinations bool               `json:"allow_cross_zone_combinations"`
	SoloAllowedTableIDs        []string           `json:"solo_allowed_table_ids,omitempty"`
	BufferMinutes              int                `json:"buffer_minutes"`
	DefaultZoneID              string             `json:"default_zone_id,omitempty"`
}

// DefaultSeatingSettings returns the documented defaults for a unit with no
// stored settings document
func DefaultSeatingSettings() SeatingSettings {
	return SeatingSettings{
		AllocationEnabled: true,
		Mode:              ModeHybrid,
		Strategy:          StrategyBestFit,
		MaxCombineCount:   3,
		BufferMinutes:     15,
	}
}

// IsOverflowZone reports whether the zone id is configured as fallback-only
func (s SeatingSettings) IsOverflowZone(zoneID string) bool {
	for _, id := range s.OverflowZones {
		if id == zoneID {
			return true
		}
	}
	return false
}

// IsSoloAllowedTable reports whether the table id bypasses minimum capacity for parties of one
func (s SeatingSettings) IsSoloAllowedTable(tableID string) bool {
	for _, id := range s.SoloAllowedTableIDs {
		if id == tableID {
			return true
		}
	}
	return false
}
