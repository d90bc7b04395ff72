package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/tablewise/seating/internal/cache"
	"github.com/tablewise/seating/internal/domain"
	"github.com/tablewise/seating/internal/telemetry"
)

// SettingsRepository loads per-unit seating settings with defaults merged
// once at read time.
type SettingsRepository interface {
	Get(ctx context.Context, unitID string) (domain.SeatingSettings, error)
	Invalidate(ctx context.Context, unitID string) error
}

// storedSettings is the partial settings document as persisted. Pointer
// fields distinguish "absent" from zero values so the defaults merge stays
// in one place.
type storedSettings struct {
	AllocationEnabled          *bool                      `json:"allocation_enabled,omitempty"`
	Mode                       *domain.AllocationMode     `json:"allocation_mode,omitempty"`
	Strategy                   *domain.AllocationStrategy `json:"allocation_strategy,omitempty"`
	ZonePriority               []string                   `json:"zone_priority,omitempty"`
	OverflowZones              []string                   `json:"overflow_zones,omitempty"`
	Emergency                  *domain.EmergencyZones     `json:"emergency_zones,omitempty"`
	MaxCombineCount            *int                       `json:"max_combine_count,omitempty"`
	AllowCrossZoneCombinations *bool                      `json:"allow_cross_zone_combinations,omitempty"`
	SoloAllowedTableIDs        []string                   `json:"solo_allowed_table_ids,omitempty"`
	BufferMinutes              *int                       `json:"buffer_minutes,omitempty"`
	DefaultZoneID              *string                    `json:"default_zone_id,omitempty"`
}

// merge applies the stored values over the documented defaults. Unknown
// mode/strategy values fall back to the defaults rather than leaking
// unvalidated strings into the engine.
func (s storedSettings) merge() domain.SeatingSettings {
	out := domain.DefaultSeatingSettings()

	if s.AllocationEnabled != nil {
		out.AllocationEnabled = *s.AllocationEnabled
	}
	if s.Mode != nil && s.Mode.Valid() {
		out.Mode = *s.Mode
	}
	if s.Strategy != nil && s.Strategy.Valid() {
		out.Strategy = *s.Strategy
	}
	if s.ZonePriority != nil {
		out.ZonePriority = s.ZonePriority
	}
	if s.OverflowZones != nil {
		out.OverflowZones = s.OverflowZones
	}
	if s.Emergency != nil {
		out.Emergency = *s.Emergency
	}
	if s.MaxCombineCount != nil && *s.MaxCombineCount > 0 {
		out.MaxCombineCount = *s.MaxCombineCount
	}
	if s.AllowCrossZoneCombinations != nil {
		out.AllowCrossZoneCombinations = *s.AllowCrossZoneCombinations
	}
	if s.SoloAllowedTableIDs != nil {
		out.SoloAllowedTableIDs = s.SoloAllowedTableIDs
	}
	if s.BufferMinutes != nil && *s.BufferMinutes >= 0 {
		out.BufferMinutes = *s.BufferMinutes
	}
	if s.DefaultZoneID != nil {
		out.DefaultZoneID = *s.DefaultZoneID
	}

	return out
}

// CachedSettingsRepository reads settings from PostgreSQL through a Redis
// cache. Concurrent cache misses for the same unit are collapsed into one
// database read.
type CachedSettingsRepository struct {
	pool  *pgxpool.Pool
	cache *cache.Client
	ttl   time.Duration
	group singleflight.Group
}

// NewCachedSettingsRepository creates a settings repository. The cache
// client may be nil, in which case every read goes to the database.
func NewCachedSettingsRepository(pool *pgxpool.Pool, cacheClient *cache.Client, ttl time.Duration) *CachedSettingsRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedSettingsRepository{
		pool:  pool,
		cache: cacheClient,
		ttl:   ttl,
	}
}

func settingsCacheKey(unitID string) string {
	return "seating:settings:" + unitID
}

// Get returns the unit's settings with defaults merged. A unit with no
// stored document gets the plain defaults, not an error.
func (r *CachedSettingsRepository) Get(ctx context.Context, unitID string) (domain.SeatingSettings, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.settings.get")
	defer span.End()

	span.SetAttributes(attribute.String("unit_id", unitID))

	if r.cache != nil {
		cached, err := r.cache.Get(ctx, settingsCacheKey(unitID)).Bytes()
		if err == nil {
			var settings domain.SeatingSettings
			if err := json.Unmarshal(cached, &settings); err == nil {
				span.SetAttributes(attribute.Bool("cache_hit", true))
				span.SetStatus(codes.Ok, "")
				return settings, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			// Cache unavailable, fall through to the database
			span.RecordError(err)
		}
	}

	v, err, _ := r.group.Do(unitID, func() (interface{}, error) {
		return r.load(ctx, unitID)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.SeatingSettings{}, err
	}

	settings := v.(domain.SeatingSettings)

	if r.cache != nil {
		if payload, err := json.Marshal(settings); err == nil {
			if err := r.cache.Set(ctx, settingsCacheKey(unitID), payload, r.ttl).Err(); err != nil {
				span.RecordError(err)
			}
		}
	}

	span.SetAttributes(attribute.Bool("cache_hit", false))
	span.SetStatus(codes.Ok, "")
	return settings, nil
}

func (r *CachedSettingsRepository) load(ctx context.Context, unitID string) (domain.SeatingSettings, error) {
	query := `
		SELECT settings
		FROM seating_settings
		WHERE unit_id = $1
	`

	var payload []byte
	err := r.pool.QueryRow(ctx, query, unitID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DefaultSeatingSettings(), nil
		}
		return domain.SeatingSettings{}, fmt.Errorf("failed to load seating settings: %w", err)
	}

	var stored storedSettings
	if err := json.Unmarshal(payload, &stored); err != nil {
		return domain.SeatingSettings{}, fmt.Errorf("failed to decode seating settings: %w", err)
	}

	return stored.merge(), nil
}

// Invalidate drops the cached settings for a unit after an admin update
func (r *CachedSettingsRepository) Invalidate(ctx context.Context, unitID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.settings.invalidate")
	defer span.End()

	span.SetAttributes(attribute.String("unit_id", unitID))

	if r.cache == nil {
		span.SetStatus(codes.Ok, "")
		return nil
	}
	if err := r.cache.Del(ctx, settingsCacheKey(unitID)).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to invalidate settings cache: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Ensure CachedSettingsRepository implements SettingsRepository
var _ SettingsRepository = (*CachedSettingsRepository)(nil)
