package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/tablewise/seating/internal/cache"
	"github.com/tablewise/seating/internal/domain"
	"github.com/tablewise/seating/internal/telemetry"
)

// FloorplanRepository loads a unit's zones, tables and combinations
type FloorplanRepository interface {
	Get(ctx context.Context, unitID string) (domain.Floorplan, error)
}

// PostgresFloorplanRepository implements FloorplanRepository using
// PostgreSQL with pgxpool
type PostgresFloorplanRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresFloorplanRepository creates a new PostgresFloorplanRepository
func NewPostgresFloorplanRepository(pool *pgxpool.Pool) *PostgresFloorplanRepository {
	return &PostgresFloorplanRepository{pool: pool}
}

// Get loads the full floorplan for a unit. A unit with zones but no tables
// is a valid (if useless) floorplan; a unit with no zones at all is not
// configured and returns ErrFloorplanNotFound.
func (r *PostgresFloorplanRepository) Get(ctx context.Context, unitID string) (domain.Floorplan, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.floorplan.get")
	defer span.End()

	span.SetAttributes(attribute.String("unit_id", unitID))

	var fp domain.Floorplan

	zones, err := r.loadZones(ctx, unitID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fp, err
	}
	if len(zones) == 0 {
		span.SetStatus(codes.Error, "not found")
		return fp, domain.ErrFloorplanNotFound
	}

	tables, err := r.loadTables(ctx, unitID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fp, err
	}

	combinations, err := r.loadCombinations(ctx, unitID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fp, err
	}

	fp.Zones = zones
	fp.Tables = tables
	fp.Combinations = combinations

	span.SetAttributes(
		attribute.Int("zone_count", len(zones)),
		attribute.Int("table_count", len(tables)),
		attribute.Int("combination_count", len(combinations)),
	)
	span.SetStatus(codes.Ok, "")
	return fp, nil
}

func (r *PostgresFloorplanRepository) loadZones(ctx context.Context, unitID string) ([]domain.Zone, error) {
	query := `
		SELECT id, name, is_active, tags, type, priority
		FROM floorplan_zones
		WHERE unit_id = $1
		ORDER BY position, id
	`

	rows, err := r.pool.Query(ctx, query, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load zones: %w", err)
	}
	defer rows.Close()

	var zones []domain.Zone
	for rows.Next() {
		var (
			zone     domain.Zone
			name     *string
			zoneType *string
		)
		if err := rows.Scan(&zone.ID, &name, &zone.IsActive, &zone.Tags, &zoneType, &zone.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan zone: %w", err)
		}
		if name != nil {
			zone.Name = *name
		}
		if zoneType != nil {
			zone.Type = domain.ZoneType(*zoneType)
		}
		zones = append(zones, zone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating zones: %w", err)
	}
	return zones, nil
}

func (r *PostgresFloorplanRepository) loadTables(ctx context.Context, unitID string) ([]domain.Table, error) {
	query := `
		SELECT id, zone_id, is_active, table_group, can_combine, tags,
			min_capacity, max_capacity, can_seat_solo
		FROM floorplan_tables
		WHERE unit_id = $1
		ORDER BY position, id
	`

	rows, err := r.pool.Query(ctx, query, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tables: %w", err)
	}
	defer rows.Close()

	var tables []domain.Table
	for rows.Next() {
		var (
			table      domain.Table
			zoneID     *string
			tableGroup *string
		)
		if err := rows.Scan(
			&table.ID,
			&zoneID,
			&table.IsActive,
			&tableGroup,
			&table.CanCombine,
			&table.Tags,
			&table.MinCapacity,
			&table.MaxCapacity,
			&table.CanSeatSolo,
		); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		if zoneID != nil {
			table.ZoneID = *zoneID
		}
		if tableGroup != nil {
			table.TableGroup = *tableGroup
		}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

func (r *PostgresFloorplanRepository) loadCombinations(ctx context.Context, unitID string) ([]domain.TableCombination, error) {
	query := `
		SELECT id, table_ids, is_active
		FROM floorplan_combinations
		WHERE unit_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load combinations: %w", err)
	}
	defer rows.Close()

	var combinations []domain.TableCombination
	for rows.Next() {
		var combo domain.TableCombination
		if err := rows.Scan(&combo.ID, &combo.TableIDs, &combo.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan combination: %w", err)
		}
		combinations = append(combinations, combo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating combinations: %w", err)
	}
	return combinations, nil
}

// CachedFloorplanRepository wraps another floorplan repository with a Redis
// snapshot cache. Floorplans change rarely and every suggestion reads one, so
// concurrent misses for the same unit collapse into one load.
type CachedFloorplanRepository struct {
	inner FloorplanRepository
	cache *cache.Client
	ttl   time.Duration
	group singleflight.Group
}

// NewCachedFloorplanRepository creates a cached floorplan repository. The
// cache client may be nil, in which case every read goes to the inner
// repository.
func NewCachedFloorplanRepository(inner FloorplanRepository, cacheClient *cache.Client, ttl time.Duration) *CachedFloorplanRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedFloorplanRepository{
		inner: inner,
		cache: cacheClient,
		ttl:   ttl,
	}
}

func floorplanCacheKey(unitID string) string {
	return "seating:floorplan:" + unitID
}

// Get returns the unit's floorplan, serving from cache when possible.
// ErrFloorplanNotFound is never cached; an operator fixing a missing
// floorplan should see the fix immediately.
func (r *CachedFloorplanRepository) Get(ctx context.Context, unitID string) (domain.Floorplan, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.floorplan.get")
	defer span.End()

	span.SetAttributes(attribute.String("unit_id", unitID))

	if r.cache != nil {
		cached, err := r.cache.Get(ctx, floorplanCacheKey(unitID)).Bytes()
		if err == nil {
			var fp domain.Floorplan
			if err := json.Unmarshal(cached, &fp); err == nil {
				span.SetAttributes(attribute.Bool("cache_hit", true))
				span.SetStatus(codes.Ok, "")
				return fp, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			span.RecordError(err)
		}
	}

	v, err, _ := r.group.Do(unitID, func() (interface{}, error) {
		return r.inner.Get(ctx, unitID)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Floorplan{}, err
	}

	fp := v.(domain.Floorplan)

	if r.cache != nil {
		if payload, err := json.Marshal(fp); err == nil {
			if err := r.cache.Set(ctx, floorplanCacheKey(unitID), payload, r.ttl).Err(); err != nil {
				span.RecordError(err)
			}
		}
	}

	span.SetAttributes(attribute.Bool("cache_hit", false))
	span.SetStatus(codes.Ok, "")
	return fp, nil
}

// Invalidate drops the cached floorplan for a unit after a layout change
func (r *CachedFloorplanRepository) Invalidate(ctx context.Context, unitID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.floorplan.invalidate")
	defer span.End()

	span.SetAttributes(attribute.String("unit_id", unitID))

	if r.cache == nil {
		span.SetStatus(codes.Ok, "")
		return nil
	}
	if err := r.cache.Del(ctx, floorplanCacheKey(unitID)).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to invalidate floorplan cache: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Ensure implementations satisfy FloorplanRepository
var (
	_ FloorplanRepository = (*PostgresFloorplanRepository)(nil)
	_ FloorplanRepository = (*CachedFloorplanRepository)(nil)
)
