package domain

// ZoneType categorizes a floorplan zone
type ZoneType string

// Zone types
const (
	ZoneTypeBar     ZoneType = "bar"
	ZoneTypeOutdoor ZoneType = "outdoor"
	ZoneTypeTable   ZoneType = "table"
	ZoneTypeOther   ZoneType = "other"
)

// Zone represents a named area of the floorplan containing tables.
// Zones are created by floorplan configuration and are read-only to the engine.
type Zone struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	IsActive bool     `json:"is_active"`
	Tags     []string `json:"tags,omitempty"`
	Type     ZoneType `json:"type,omitempty"`
	Priority *int     `json:"priority,omitempty"`
}

// Default capacities applied when a table leaves them unset
const (
	DefaultTableMinCapacity = 1
	DefaultTableMaxCapacity = 2
)

// Table represents a physical table on the floorplan.
// Every table used by the engine must resolve to an active zone.
type Table struct {
	ID          string   `json:"id"`
	ZoneID      string   `json:"zone_id,omitempty"`
	IsActive    bool     `json:"is_active"`
	TableGroup  string   `json:"table_group,omitempty"`
	CanCombine  bool     `json:"can_combine"`
	Tags        []string `json:"tags,omitempty"`
	MinCapacity *int     `json:"min_capacity,omitempty"`
	MaxCapacity *int     `json:"capacity_max,omitempty"`
	CanSeatSolo bool     `json:"can_seat_solo,omitempty"`
}

// EffectiveMinCapacity returns the table's minimum party size with the default applied
func (t *Table) EffectiveMinCapacity() int {
	if t.MinCapacity == nil {
		return DefaultTableMinCapacity
	}
	return *t.MinCapacity
}

// EffectiveMaxCapacity returns the table's maximum party size with the default applied
func (t *Table) EffectiveMaxCapacity() int {
	if t.MaxCapacity == nil {
		return DefaultTableMaxCapacity
	}
	return *t.MaxCapacity
}

// TableCombination is a predefined group of tables seated together as one unit.
// Its effective zone is the zone of the first listed table (the anchor).
type TableCombination struct {
	ID       string   `json:"id"`
	TableIDs []string `json:"table_ids"`
	IsActive bool     `json:"is_active"`
}

// Floorplan bundles the seating resources of a single unit
type Floorplan struct {
	Zones        []Zone             `json:"zones"`
	Tables       []Table            `json:"tables"`
	Combinations []TableCombination `json:"combinations"`
}
