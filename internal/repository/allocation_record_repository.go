package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tablewise/seating/internal/domain"
	"github.com/tablewise/seating/internal/telemetry"
)

// AllocationRecordRepository persists audit records of allocation decisions.
// Records are keyed by a deterministic event id, so a retried decision
// rewrites the same row instead of duplicating it.
type AllocationRecordRepository interface {
	Upsert(ctx context.Context, record domain.AllocationRecord) error
}

// PostgresAllocationRecordRepository implements AllocationRecordRepository
// using PostgreSQL with pgxpool
type PostgresAllocationRecordRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAllocationRecordRepository creates a new PostgresAllocationRecordRepository
func NewPostgresAllocationRecordRepository(pool *pgxpool.Pool) *PostgresAllocationRecordRepository {
	return &PostgresAllocationRecordRepository{pool: pool}
}

// Upsert writes the audit record idempotently by event id
func (r *PostgresAllocationRecordRepository) Upsert(ctx context.Context, record domain.AllocationRecord) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.allocation_record.upsert")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", record.EventID),
		attribute.String("unit_id", record.UnitID),
		attribute.String("booking_id", record.BookingID),
	)

	query := `
		INSERT INTO allocation_records (
			event_id, unit_id, booking_id, zone_id, table_ids, trace_id,
			decided_at_ms, strategy, diagnostics_summary,
			computed_for_start_time_ms, computed_for_end_time_ms,
			computed_for_headcount, algo_version, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11,
			$12, $13, $14
		)
		ON CONFLICT (event_id) DO UPDATE SET
			zone_id = EXCLUDED.zone_id,
			table_ids = EXCLUDED.table_ids,
			trace_id = EXCLUDED.trace_id,
			decided_at_ms = EXCLUDED.decided_at_ms,
			diagnostics_summary = EXCLUDED.diagnostics_summary
	`

	_, err := r.pool.Exec(ctx, query,
		record.EventID,
		record.UnitID,
		record.BookingID,
		nullString(record.ZoneID),
		record.TableIDs,
		nullString(record.TraceID),
		record.DecidedAtMs,
		string(record.Strategy),
		record.DiagnosticsSummary,
		record.ComputedForStartTimeMs,
		record.ComputedForEndTimeMs,
		record.ComputedForHeadcount,
		record.AlgoVersion,
		time.Now(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to upsert allocation record: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Ensure PostgresAllocationRecordRepository implements AllocationRecordRepository
var _ AllocationRecordRepository = (*PostgresAllocationRecordRepository)(nil)
