package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tablewise/seating/internal/domain"
	"github.com/tablewise/seating/internal/telemetry"
)

// StoredCapacityDocument pairs a raw capacity document with its storage key,
// for the batch scanner.
type StoredCapacityDocument struct {
	UnitID  string
	DateKey string
	Raw     domain.RawCapacityDocument
}

// CapacityDocumentRepository persists per-unit, per-day aggregate headcounts.
// GetForUpdate and Upsert run against a caller-owned transaction so a
// multi-document mutation plan commits atomically with the booking update.
type CapacityDocumentRepository interface {
	Get(ctx context.Context, unitID, dateKey string) (domain.RawCapacityDocument, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, unitID, dateKey string) (domain.RawCapacityDocument, bool, error)
	Upsert(ctx context.Context, tx pgx.Tx, unitID, dateKey string, doc domain.CapacityDocument) error
	List(ctx context.Context, unitID, fromKey, toKey string, limit, offset int) ([]StoredCapacityDocument, error)
	Correct(ctx context.Context, unitID, dateKey string, doc domain.CapacityDocument) error
}

// PostgresCapacityRepository implements CapacityDocumentRepository using
// PostgreSQL with pgxpool
type PostgresCapacityRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCapacityRepository creates a new PostgresCapacityRepository
func NewPostgresCapacityRepository(pool *pgxpool.Pool) *PostgresCapacityRepository {
	return &PostgresCapacityRepository{pool: pool}
}

const capacityColumns = `total_count, count, by_time_slot, last_mutation_trace_id`

// Get retrieves a capacity document without locking it
func (r *PostgresCapacityRepository) Get(ctx context.Context, unitID, dateKey string) (domain.RawCapacityDocument, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.capacity.get")
	defer span.End()

	span.SetAttributes(
		attribute.String("unit_id", unitID),
		attribute.String("date_key", dateKey),
	)

	query := `
		SELECT ` + capacityColumns + `
		FROM capacity_documents
		WHERE unit_id = $1 AND date_key = $2
	`

	raw, err := scanCapacityRow(r.pool.QueryRow(ctx, query, unitID, dateKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return domain.RawCapacityDocument{}, domain.ErrCapacityDocumentNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.RawCapacityDocument{}, fmt.Errorf("failed to get capacity document: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return raw, nil
}

// GetForUpdate reads a capacity document inside the given transaction with a
// row lock. A missing row is not an error: the ledger transaction creates
// documents on first write, so it returns a zero document and found=false.
func (r *PostgresCapacityRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, unitID, dateKey string) (domain.RawCapacityDocument, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.capacity.get_for_update")
	defer span.End()

	span.SetAttributes(
		attribute.String("unit_id", unitID),
		attribute.String("date_key", dateKey),
	)

	query := `
		SELECT ` + capacityColumns + `
		FROM capacity_documents
		WHERE unit_id = $1 AND date_key = $2
		FOR UPDATE
	`

	raw, err := scanCapacityRow(tx.QueryRow(ctx, query, unitID, dateKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "not found")
			return domain.RawCapacityDocument{}, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.RawCapacityDocument{}, false, fmt.Errorf("failed to lock capacity document: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return raw, true, nil
}

// Upsert writes a canonical capacity document inside the given transaction
func (r *PostgresCapacityRepository) Upsert(ctx context.Context, tx pgx.Tx, unitID, dateKey string, doc domain.CapacityDocument) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.capacity.upsert")
	defer span.End()

	span.SetAttributes(
		attribute.String("unit_id", unitID),
		attribute.String("date_key", dateKey),
		attribute.Int("total_count", doc.TotalCount),
	)

	slots, err := marshalSlots(doc.ByTimeSlot)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	query := `
		INSERT INTO capacity_documents (
			unit_id, date_key, total_count, count, by_time_slot,
			last_mutation_trace_id, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (unit_id, date_key) DO UPDATE SET
			total_count = EXCLUDED.total_count,
			count = EXCLUDED.count,
			by_time_slot = EXCLUDED.by_time_slot,
			last_mutation_trace_id = EXCLUDED.last_mutation_trace_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err = tx.Exec(ctx, query,
		unitID,
		dateKey,
		doc.TotalCount,
		doc.Count,
		slots,
		nullString(doc.LastMutationTraceID),
		time.Now(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to upsert capacity document: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// List pages through stored capacity documents for the batch scanner.
// Empty fromKey/toKey leave that bound open.
func (r *PostgresCapacityRepository) List(ctx context.Context, unitID, fromKey, toKey string, limit, offset int) ([]StoredCapacityDocument, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.capacity.list")
	defer span.End()

	span.SetAttributes(
		attribute.String("unit_id", unitID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	query := `
		SELECT unit_id, date_key, ` + capacityColumns + `
		FROM capacity_documents
		WHERE ($1 = '' OR unit_id = $1)
			AND ($2 = '' OR date_key >= $2)
			AND ($3 = '' OR date_key <= $3)
		ORDER BY unit_id, date_key
		LIMIT $4 OFFSET $5
	`

	rows, err := r.pool.Query(ctx, query, unitID, fromKey, toKey, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list capacity documents: %w", err)
	}
	defer rows.Close()

	var docs []StoredCapacityDocument
	for rows.Next() {
		var (
			stored    StoredCapacityDocument
			total     *float64
			count     *float64
			slotBytes []byte
			traceID   *string
		)
		if err := rows.Scan(&stored.UnitID, &stored.DateKey, &total, &count, &slotBytes, &traceID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan capacity document: %w", err)
		}
		raw, err := buildRawDocument(total, count, slotBytes, traceID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		stored.Raw = raw
		docs = append(docs, stored)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating capacity documents: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(docs)))
	span.SetStatus(codes.Ok, "")
	return docs, nil
}

// Correct applies a normalized document as an out-of-band corrective write.
// It keeps the stored trace id untouched so it never masks a ledger replay
// guard, and drops by_time_slot when normalization dropped it.
func (r *PostgresCapacityRepository) Correct(ctx context.Context, unitID, dateKey string, doc domain.CapacityDocument) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.capacity.correct")
	defer span.End()

	span.SetAttributes(
		attribute.String("unit_id", unitID),
		attribute.String("date_key", dateKey),
	)

	slots, err := marshalSlots(doc.ByTimeSlot)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	query := `
		UPDATE capacity_documents SET
			total_count = $3,
			count = $4,
			by_time_slot = $5,
			updated_at = $6
		WHERE unit_id = $1 AND date_key = $2
	`

	result, err := r.pool.Exec(ctx, query, unitID, dateKey, doc.TotalCount, doc.Count, slots, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to correct capacity document: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrCapacityDocumentNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func scanCapacityRow(row pgx.Row) (domain.RawCapacityDocument, error) {
	var (
		total     *float64
		count     *float64
		slotBytes []byte
		traceID   *string
	)
	if err := row.Scan(&total, &count, &slotBytes, &traceID); err != nil {
		return domain.RawCapacityDocument{}, err
	}
	return buildRawDocument(total, count, slotBytes, traceID)
}

func buildRawDocument(total, count *float64, slotBytes []byte, traceID *string) (domain.RawCapacityDocument, error) {
	raw := domain.RawCapacityDocument{
		TotalCount: total,
		Count:      count,
	}
	if traceID != nil {
		raw.LastMutationTraceID = *traceID
	}
	if len(slotBytes) > 0 {
		var slots map[string]any
		if err := json.Unmarshal(slotBytes, &slots); err != nil {
			// Historical writers stored non-object values here. The
			// normalizer treats that as an invalid breakdown, so surface
			// it as a nil map rather than failing the read.
			return raw, nil
		}
		raw.ByTimeSlot = slots
	}
	return raw, nil
}

func marshalSlots(slots map[string]int) ([]byte, error) {
	if slots == nil {
		return nil, nil
	}
	b, err := json.Marshal(slots)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal slot breakdown: %w", err)
	}
	return b, nil
}

// Helper function to convert empty string to nil pointer
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure PostgresCapacityRepository implements CapacityDocumentRepository
var _ CapacityDocumentRepository = (*PostgresCapacityRepository)(nil)
