package allocation

import (
	"reflect"
	"testing"

	"github.com/tablewise/seating/internal/domain"
)

func intPtr(v int) *int { return &v }

func activeZone(id string) domain.Zone {
	return domain.Zone{ID: id, IsActive: true}
}

func table(id, zoneID string, minCap, maxCap int) domain.Table {
	return domain.Table{
		ID:          id,
		ZoneID:      zoneID,
		IsActive:    true,
		MinCapacity: intPtr(minCap),
		MaxCapacity: intPtr(maxCap),
	}
}

func TestBuildCandidates_SingleTables(t *testing.T) {
	tests := []struct {
		name       string
		partySize  int
		fp         domain.Floorplan
		settings   domain.SeatingSettings
		wantLabels []string
	}{
		{
			name:      "table within range is a candidate",
			partySize: 3,
			fp: domain.Floorplan{
				Zones:  []domain.Zone{activeZone("main")},
				Tables: []domain.Table{table("t1", "main", 2, 4)},
			},
			settings:   domain.DefaultSeatingSettings(),
			wantLabels: []string{"t1"},
		},
		{
			name:      "defaults apply when capacities unset",
			partySize: 2,
			fp: domain.Floorplan{
				Zones:  []domain.Zone{activeZone("main")},
				Tables: []domain.Table{{ID: "t1", ZoneID: "main", IsActive: true}},
			},
			settings:   domain.DefaultSeatingSettings(),
			wantLabels: []string{"t1"},
		},
		{
			name:      "party above default max of two rejected",
			partySize: 3,
			fp: domain.Floorplan{
				Zones:  []domain.Zone{activeZone("main")},
				Tables: []domain.Table{{ID: "t1", ZoneID: "main", IsActive: true}},
			},
			settings:   domain.DefaultSeatingSettings(),
			wantLabels: nil,
		},
		{
			name:      "party below minimum rejected",
			partySize: 1,
			fp: domain.Floorplan{
				Zones:  []domain.Zone{activeZone("main")},
				Tables: []domain.Table{table("t1", "main", 2, 4)},
			},
			settings:   domain.DefaultSeatingSettings(),
			wantLabels: nil,
		},
		{
			name:      "solo party bypasses minimum on canSeatSolo table",
			partySize: 1,
			fp: domain.Floorplan{
				Zones: []domain.Zone{activeZone("main")},
				Tables: []domain.Table{{
					ID: "t1", ZoneID: "main", IsActive: true,
					MinCapacity: intPtr(2), MaxCapacity: intPtr(4), CanSeatSolo: true,
				}},
			},
			settings:   domain.DefaultSeatingSettings(),
			wantLabels: []string{"t1"},
		},
		{
			name:      "solo party bypasses minimum via allow-list",
			partySize: 1,
			fp: domain.Floorplan{
				Zones:  []domain.Zone{activeZone("main")},
				Tables: []domain.Table{table("t1", "main", 2, 4)},
			},
			settings: func() domain.SeatingSettings {
				s := domain.DefaultSeatingSettings()
				s.SoloAllowedTableIDs = []string{"t1"}
				return s
			}(),
			wantLabels: []string{"t1"},
		},
		{
			name:      "inactive table rejected",
			partySize: 2,
			fp: domain.Floorplan{
				Zones:  []domain.Zone{activeZone("main")},
				Tables: []domain.Table{{ID: "t1", ZoneID: "main", MinCapacity: intPtr(1), MaxCapacity: intPtr(4)}},
			},
			settings:   domain.DefaultSeatingSettings(),
			wantLabels: nil,
		},
		{
			name:      "table in inactive zone rejected",
			partySize: 2,
			fp: domain.Floorplan{
				Zones:  []domain.Zone{{ID: "main", IsActive: false}},
				Tables: []domain.Table{table("t1", "main", 1, 4)},
			},
			settings:   domain.DefaultSeatingSettings(),
			wantLabels: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildCandidates(tt.partySize, tt.fp, tt.settings)
			var labels []string
			for _, c := range got {
				labels = append(labels, c.Label)
			}
			if !reflect.DeepEqual(labels, tt.wantLabels) {
				t.Errorf("BuildCandidates() labels = %v, want %v", labels, tt.wantLabels)
			}
		})
	}
}

func TestBuildCandidates_Combinations(t *testing.T) {
	fp := domain.Floorplan{
		Zones: []domain.Zone{activeZone("main"), activeZone("patio")},
		Tables: []domain.Table{
			table("t1", "main", 2, 4),
			table("t2", "main", 2, 4),
			table("t3", "patio", 2, 4),
		},
	}

	tests := []struct {
		name      string
		partySize int
		combo     domain.TableCombination
		settings  domain.SeatingSettings
		want      *domain.Candidate
	}{
		{
			name:      "same-zone combination within bounds",
			partySize: 6,
			combo:     domain.TableCombination{ID: "c1", TableIDs: []string{"t1", "t2"}, IsActive: true},
			settings:  domain.DefaultSeatingSettings(),
			want: &domain.Candidate{
				ZoneID: "main", TableIDs: []string{"t1", "t2"},
				TotalMin: 4, TotalMax: 8, Label: "t1,t2",
			},
		},
		{
			name:      "party below summed minimum rejected",
			partySize: 3,
			combo:     domain.TableCombination{ID: "c1", TableIDs: []string{"t1", "t2"}, IsActive: true},
			settings:  domain.DefaultSeatingSettings(),
			want:      nil,
		},
		{
			name:      "cross-zone rejected by default",
			partySize: 6,
			combo:     domain.TableCombination{ID: "c1", TableIDs: []string{"t1", "t3"}, IsActive: true},
			settings:  domain.DefaultSeatingSettings(),
			want:      nil,
		},
		{
			name:      "cross-zone allowed when configured, anchored on first table",
			partySize: 6,
			combo:     domain.TableCombination{ID: "c1", TableIDs: []string{"t3", "t1"}, IsActive: true},
			settings: func() domain.SeatingSettings {
				s := domain.DefaultSeatingSettings()
				s.AllowCrossZoneCombinations = true
				return s
			}(),
			want: &domain.Candidate{
				ZoneID: "patio", TableIDs: []string{"t3", "t1"},
				TotalMin: 4, TotalMax: 8, Label: "t3,t1",
			},
		},
		{
			name:      "missing member table rejected",
			partySize: 6,
			combo:     domain.TableCombination{ID: "c1", TableIDs: []string{"t1", "gone"}, IsActive: true},
			settings:  domain.DefaultSeatingSettings(),
			want:      nil,
		},
		{
			name:      "combining disabled below two",
			partySize: 6,
			combo:     domain.TableCombination{ID: "c1", TableIDs: []string{"t1", "t2"}, IsActive: true},
			settings: func() domain.SeatingSettings {
				s := domain.DefaultSeatingSettings()
				s.MaxCombineCount = 1
				return s
			}(),
			want: nil,
		},
		{
			name:      "combination larger than max combine count rejected",
			partySize: 8,
			combo:     domain.TableCombination{ID: "c1", TableIDs: []string{"t1", "t2", "t3"}, IsActive: true},
			settings: func() domain.SeatingSettings {
				s := domain.DefaultSeatingSettings()
				s.MaxCombineCount = 2
				return s
			}(),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := fp
			plan.Combinations = []domain.TableCombination{tt.combo}
			got := BuildCandidates(tt.partySize, plan, tt.settings)

			var combos []domain.Candidate
			for _, c := range got {
				if len(c.TableIDs) > 1 {
					combos = append(combos, c)
				}
			}
			if tt.want == nil {
				if len(combos) != 0 {
					t.Errorf("BuildCandidates() combination candidates = %v, want none", combos)
				}
				return
			}
			if len(combos) != 1 {
				t.Fatalf("BuildCandidates() combination candidates = %d, want 1", len(combos))
			}
			if !reflect.DeepEqual(combos[0], *tt.want) {
				t.Errorf("BuildCandidates() combination = %+v, want %+v", combos[0], *tt.want)
			}
		})
	}
}
