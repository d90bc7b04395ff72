package allocation

import (
	"reflect"
	"testing"
	"time"

	"github.com/tablewise/seating/internal/domain"
)

func zoneIDs(zones []domain.Zone) []string {
	var ids []string
	for _, z := range zones {
		ids = append(ids, z.ID)
	}
	return ids
}

func TestOrderZones(t *testing.T) {
	zones := []domain.Zone{
		activeZone("bar"),
		activeZone("main"),
		{ID: "closed", IsActive: false},
		activeZone("patio"),
	}

	tests := []struct {
		name     string
		settings domain.SeatingSettings
		want     []string
	}{
		{
			name: "explicit priority list leads, remainder keeps original order",
			settings: func() domain.SeatingSettings {
				s := domain.DefaultSeatingSettings()
				s.ZonePriority = []string{"patio", "main"}
				return s
			}(),
			want: []string{"patio", "main", "bar"},
		},
		{
			name: "priority entries for unknown or inactive zones are skipped",
			settings: func() domain.SeatingSettings {
				s := domain.DefaultSeatingSettings()
				s.ZonePriority = []string{"closed", "ghost", "main"}
				return s
			}(),
			want: []string{"main", "bar", "patio"},
		},
		{
			name: "no priority list puts the default zone first",
			settings: func() domain.SeatingSettings {
				s := domain.DefaultSeatingSettings()
				s.DefaultZoneID = "main"
				return s
			}(),
			want: []string{"main", "bar", "patio"},
		},
		{
			name:     "no configuration keeps original order",
			settings: domain.DefaultSeatingSettings(),
			want:     []string{"bar", "main", "patio"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := zoneIDs(OrderZones(tt.settings, zones))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("OrderZones() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPartitionTiers(t *testing.T) {
	settings := domain.DefaultSeatingSettings()
	settings.OverflowZones = []string{"patio"}
	settings.Emergency = domain.EmergencyZones{
		Enabled: true,
		ZoneIDs: []string{"annex"},
	}

	ordered := []domain.Zone{
		activeZone("main"),
		activeZone("patio"),
		activeZone("annex"),
		activeZone("bar"),
	}

	primary, fallback := PartitionTiers(settings, ordered)
	if got, want := zoneIDs(primary), []string{"main", "bar"}; !reflect.DeepEqual(got, want) {
		t.Errorf("primary = %v, want %v", got, want)
	}
	if got, want := zoneIDs(fallback), []string{"patio"}; !reflect.DeepEqual(got, want) {
		t.Errorf("fallback = %v, want %v", got, want)
	}
}

func TestEmergencyTier(t *testing.T) {
	sunday := time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)
	tuesday := time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC)
	ordered := []domain.Zone{activeZone("main"), activeZone("annex")}

	tests := []struct {
		name      string
		emergency domain.EmergencyZones
		date      time.Time
		want      []string
	}{
		{
			name: "always rule activates",
			emergency: domain.EmergencyZones{
				Enabled: true, ZoneIDs: []string{"annex"}, ActiveRule: domain.EmergencyAlways,
			},
			date: tuesday,
			want: []string{"annex"},
		},
		{
			name: "weekday rule matches booking weekday",
			emergency: domain.EmergencyZones{
				Enabled: true, ZoneIDs: []string{"annex"},
				ActiveRule: domain.EmergencyByWeekday, Weekdays: []time.Weekday{time.Sunday},
			},
			date: sunday,
			want: []string{"annex"},
		},
		{
			name: "weekday rule misses booking weekday",
			emergency: domain.EmergencyZones{
				Enabled: true, ZoneIDs: []string{"annex"},
				ActiveRule: domain.EmergencyByWeekday, Weekdays: []time.Weekday{time.Sunday},
			},
			date: tuesday,
			want: nil,
		},
		{
			name: "disabled flag wins over rule",
			emergency: domain.EmergencyZones{
				Enabled: false, ZoneIDs: []string{"annex"}, ActiveRule: domain.EmergencyAlways,
			},
			date: sunday,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := domain.DefaultSeatingSettings()
			settings.Emergency = tt.emergency
			got := zoneIDs(EmergencyTier(settings, ordered, tt.date))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("EmergencyTier() = %v, want %v", got, tt.want)
			}
		})
	}
}
