package allocation

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/tablewise/seating/internal/domain"
)

var testTuesday = time.Date(2025, 1, 7, 19, 0, 0, 0, time.UTC)

func settingsWith(mutate func(*domain.SeatingSettings)) domain.SeatingSettings {
	s := domain.DefaultSeatingSettings()
	if mutate != nil {
		mutate(&s)
	}
	return s
}

func TestDecide_Terminals(t *testing.T) {
	fp := domain.Floorplan{
		Zones:  []domain.Zone{activeZone("main")},
		Tables: []domain.Table{table("t1", "main", 1, 4)},
	}

	tests := []struct {
		name       string
		in         DecisionInput
		wantReason domain.DecisionReason
	}{
		{
			name: "allocation disabled short-circuits",
			in: DecisionInput{
				PartySize:   2,
				BookingDate: testTuesday,
				Settings:    settingsWith(func(s *domain.SeatingSettings) { s.AllocationEnabled = false }),
				Floorplan:   fp,
			},
			wantReason: domain.ReasonAllocationDisabled,
		},
		{
			name: "non-positive party size",
			in: DecisionInput{
				PartySize:   0,
				BookingDate: testTuesday,
				Settings:    settingsWith(nil),
				Floorplan:   fp,
			},
			wantReason: domain.ReasonInvalidPartySize,
		},
		{
			name: "no geometric fit",
			in: DecisionInput{
				PartySize:   12,
				BookingDate: testTuesday,
				Settings:    settingsWith(nil),
				Floorplan:   fp,
			},
			wantReason: domain.ReasonNoFit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.in)
			if got.Reason != tt.wantReason {
				t.Errorf("Decide() reason = %s, want %s", got.Reason, tt.wantReason)
			}
			if got.Assigned() {
				t.Errorf("Decide() assigned %s/%v, want no assignment", got.ZoneID, got.TableIDs)
			}
		})
	}
}

func TestDecide_FloorplanTiers(t *testing.T) {
	fp := domain.Floorplan{
		Zones: []domain.Zone{activeZone("main"), activeZone("patio"), activeZone("annex")},
		Tables: []domain.Table{
			table("m1", "main", 1, 4),
			table("p1", "patio", 1, 4),
			table("a1", "annex", 1, 4),
		},
	}

	tests := []struct {
		name       string
		partySize  int
		settings   domain.SeatingSettings
		wantZone   string
		wantReason domain.DecisionReason
	}{
		{
			name:      "primary zone wins first",
			partySize: 2,
			settings: settingsWith(func(s *domain.SeatingSettings) {
				s.Mode = domain.ModeFloorplan
				s.OverflowZones = []string{"patio"}
			}),
			wantZone:   "main",
			wantReason: domain.ReasonZoneFirst,
		},
		{
			name:      "overflow zone used when primary has no fit",
			partySize: 2,
			settings: settingsWith(func(s *domain.SeatingSettings) {
				s.Mode = domain.ModeFloorplan
				s.ZonePriority = []string{"patio"}
				s.OverflowZones = []string{"patio"}
				s.Emergency = domain.EmergencyZones{Enabled: true, ZoneIDs: []string{"main", "annex"}}
			}),
			wantZone:   "patio",
			wantReason: domain.ReasonZoneOverflow,
		},
		{
			name:      "emergency zone as last resort when rule active",
			partySize: 2,
			settings: settingsWith(func(s *domain.SeatingSettings) {
				s.Mode = domain.ModeFloorplan
				s.OverflowZones = []string{"main", "patio"}
				s.ZonePriority = []string{}
				s.Emergency = domain.EmergencyZones{
					Enabled: true, ZoneIDs: []string{"main", "patio", "annex"},
					ActiveRule: domain.EmergencyAlways,
				}
			}),
			wantZone:   "main",
			wantReason: domain.ReasonEmergencyZone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(DecisionInput{
				PartySize:   tt.partySize,
				BookingDate: testTuesday,
				Settings:    tt.settings,
				Floorplan:   fp,
			})
			if got.Reason != tt.wantReason {
				t.Errorf("Decide() reason = %s, want %s", got.Reason, tt.wantReason)
			}
			if got.ZoneID != tt.wantZone {
				t.Errorf("Decide() zone = %s, want %s", got.ZoneID, tt.wantZone)
			}
		})
	}
}

// Inactive emergency rule keeps emergency zones out of every floorplan tier,
// even when they hold the only remaining capacity.
func TestDecide_EmergencyRuleExcludesZones(t *testing.T) {
	fp := domain.Floorplan{
		Zones:  []domain.Zone{activeZone("annex")},
		Tables: []domain.Table{table("a1", "annex", 1, 4)},
	}
	settings := settingsWith(func(s *domain.SeatingSettings) {
		s.Mode = domain.ModeFloorplan
		s.Emergency = domain.EmergencyZones{
			Enabled:    true,
			ZoneIDs:    []string{"annex"},
			ActiveRule: domain.EmergencyByWeekday,
			Weekdays:   []time.Weekday{time.Sunday},
		}
	})

	got := Decide(DecisionInput{
		PartySize:   2,
		BookingDate: testTuesday, // not a Sunday
		Settings:    settings,
		Floorplan:   fp,
	})
	if got.Reason != domain.ReasonNoFit {
		t.Errorf("Decide() reason = %s, want %s", got.Reason, domain.ReasonNoFit)
	}
	if got.Assigned() {
		t.Errorf("Decide() assigned %s/%v, want no assignment", got.ZoneID, got.TableIDs)
	}
}

// Slack ties are broken by label, regardless of which zone the candidate
// belongs to.
func TestDecide_LabelTieBreakAcrossZones(t *testing.T) {
	fp := domain.Floorplan{
		Zones: []domain.Zone{activeZone("a"), activeZone("b")},
		Tables: []domain.Table{
			table("t2", "b", 1, 4),
			table("t1", "a", 1, 4),
		},
	}
	settings := settingsWith(func(s *domain.SeatingSettings) {
		s.Mode = domain.ModeCapacity
		s.Strategy = domain.StrategyBestFit
		s.ZonePriority = []string{"a", "b"}
	})

	got := Decide(DecisionInput{
		PartySize:   4,
		BookingDate: testTuesday,
		Settings:    settings,
		Floorplan:   fp,
	})
	if got.Reason != domain.ReasonBestFit {
		t.Errorf("Decide() reason = %s, want %s", got.Reason, domain.ReasonBestFit)
	}
	if !reflect.DeepEqual(got.TableIDs, []string{"t1"}) {
		t.Errorf("Decide() tables = %v, want [t1]", got.TableIDs)
	}
}

func TestDecide_ModeAgnosticFallbacks(t *testing.T) {
	fp := domain.Floorplan{
		Zones: []domain.Zone{activeZone("main"), activeZone("annex")},
		Tables: []domain.Table{
			table("m1", "main", 5, 8),
			table("a1", "annex", 1, 4),
		},
	}

	tests := []struct {
		name       string
		partySize  int
		settings   domain.SeatingSettings
		wantZone   string
		wantReason domain.DecisionReason
	}{
		{
			name:      "hybrid falls through to cross-zone ranking after tiers exhaust",
			partySize: 6,
			settings: settingsWith(func(s *domain.SeatingSettings) {
				s.Mode = domain.ModeHybrid
				s.Emergency = domain.EmergencyZones{
					Enabled: true, ZoneIDs: []string{"main"},
					ActiveRule: domain.EmergencyByWeekday, Weekdays: []time.Weekday{time.Sunday},
				}
			}),
			wantZone:   "main",
			wantReason: domain.ReasonFloorplanFallback,
		},
		{
			name:      "capacity mode prefers non-emergency candidates",
			partySize: 2,
			settings: settingsWith(func(s *domain.SeatingSettings) {
				s.Mode = domain.ModeCapacity
				s.Emergency = domain.EmergencyZones{
					Enabled: true, ZoneIDs: []string{"main"}, ActiveRule: domain.EmergencyAlways,
				}
			}),
			wantZone:   "annex",
			wantReason: domain.ReasonBestFit,
		},
		{
			name:      "capacity mode uses eligible emergency set as true fallback",
			partySize: 6,
			settings: settingsWith(func(s *domain.SeatingSettings) {
				s.Mode = domain.ModeCapacity
				s.Emergency = domain.EmergencyZones{
					Enabled: true, ZoneIDs: []string{"main"}, ActiveRule: domain.EmergencyAlways,
				}
			}),
			wantZone:   "main",
			wantReason: domain.ReasonEmergencyZone,
		},
		{
			name:      "capacity mode widens to full set when emergency rule inactive",
			partySize: 6,
			settings: settingsWith(func(s *domain.SeatingSettings) {
				s.Mode = domain.ModeCapacity
				s.Emergency = domain.EmergencyZones{
					Enabled: true, ZoneIDs: []string{"main"},
					ActiveRule: domain.EmergencyByWeekday, Weekdays: []time.Weekday{time.Sunday},
				}
			}),
			wantZone:   "main",
			wantReason: domain.ReasonBestFit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(DecisionInput{
				PartySize:   tt.partySize,
				BookingDate: testTuesday,
				Settings:    tt.settings,
				Floorplan:   fp,
			})
			if got.Reason != tt.wantReason {
				t.Errorf("Decide() reason = %s, want %s", got.Reason, tt.wantReason)
			}
			if got.ZoneID != tt.wantZone {
				t.Errorf("Decide() zone = %s, want %s", got.ZoneID, tt.wantZone)
			}
		})
	}
}

func TestDecide_Deterministic(t *testing.T) {
	fp := domain.Floorplan{
		Zones: []domain.Zone{activeZone("main"), activeZone("patio"), activeZone("bar")},
		Tables: []domain.Table{
			table("t4", "patio", 1, 6),
			table("t1", "main", 1, 4),
			table("t3", "bar", 1, 4),
			table("t2", "main", 2, 8),
		},
		Combinations: []domain.TableCombination{
			{ID: "c1", TableIDs: []string{"t1", "t2"}, IsActive: true},
		},
	}
	in := DecisionInput{
		PartySize:   4,
		BookingDate: testTuesday,
		Settings: settingsWith(func(s *domain.SeatingSettings) {
			s.ZonePriority = []string{"main", "patio"}
			s.OverflowZones = []string{"bar"}
		}),
		Floorplan: fp,
	}

	first, err := json.Marshal(Decide(in))
	if err != nil {
		t.Fatalf("marshal decision: %v", err)
	}
	for i := 0; i < 50; i++ {
		next, err := json.Marshal(Decide(in))
		if err != nil {
			t.Fatalf("marshal decision: %v", err)
		}
		if string(next) != string(first) {
			t.Fatalf("Decide() not deterministic: run %d produced %s, first run %s", i, next, first)
		}
	}
}
