package repository

import (
	"context"
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

// BookingLedgerRepository reads a booking's capacity-relevant state and
// writes its embedded ledger, inside a caller-owned transaction.
type BookingLedgerRepository interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, unitID, bookingID string) (*domain.Booking, error)
	UpdateLedger(ctx context.Context, tx pgx.Tx, unitID, bookingID string, ledger domain.CapacityLedger) error
}

// PostgresBookingRepository implements BookingLedgerRepository using
// PostgreSQL with pgxpool
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

// GetForUpdate reads the booking with a row lock so the ledger diff and the
// capacity writes see a stable snapshot.
func (r *PostgresBookingRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, unitID, bookingID string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_for_update")
	defer span.End()

	span.SetAttributes(
		attribute.String("unit_id", unitID),
		attribute.String("booking_id", bookingID),
	)

	query := `
		SELECT
			id, unit_id, status, party_size, date_key, slot_key,
			start_time, end_time,
			ledger_applied, ledger_key, ledger_count, ledger_slot_key,
			ledger_applied_at, ledger_trace_id
		FROM bookings
		WHERE unit_id = $1 AND id = $2
		FOR UPDATE
	`

	booking := &domain.Booking{}
	var (
		status        string
		slotKey       *string
		ledgerApplied *bool
		ledgerKey     *string
		ledgerCount   *int
		ledgerSlotKey *string
		ledgerAt      *time.Time
		ledgerTraceID *string
	)

	err := tx.QueryRow(ctx, query, unitID, bookingID).Scan(
		&booking.ID,
		&booking.UnitID,
		&status,
		&booking.PartySize,
		&booking.DateKey,
		&slotKey,
		&booking.StartTime,
		&booking.EndTime,
		&ledgerApplied,
		&ledgerKey,
		&ledgerCount,
		&ledgerSlotKey,
		&ledgerAt,
		&ledgerTraceID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrBookingNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	booking.Status = domain.BookingStatus(status)
	if slotKey != nil {
		booking.SlotKey = *slotKey
	}
	if ledgerApplied != nil {
		booking.Ledger.Applied = *ledgerApplied
	}
	if ledgerKey != nil {
		booking.Ledger.Key = *ledgerKey
	}
	if ledgerCount != nil {
		booking.Ledger.Count = *ledgerCount
	}
	if ledgerSlotKey != nil {
		booking.Ledger.SlotKey = *ledgerSlotKey
	}
	if ledgerAt != nil {
		booking.Ledger.AppliedAt = *ledgerAt
	}
	if ledgerTraceID != nil {
		booking.Ledger.LastMutationTraceID = *ledgerTraceID
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// UpdateLedger stamps the booking's embedded ledger with the applied state
func (r *PostgresBookingRepository) UpdateLedger(ctx context.Context, tx pgx.Tx, unitID, bookingID string, ledger domain.CapacityLedger) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.update_ledger")
	defer span.End()

	span.SetAttributes(
		attribute.String("unit_id", unitID),
		attribute.String("booking_id", bookingID),
		attribute.Bool("applied", ledger.Applied),
		attribute.String("ledger_key", ledger.Key),
	)

	query := `
		UPDATE bookings SET
			ledger_applied = $3,
			ledger_key = $4,
			ledger_count = $5,
			ledger_slot_key = $6,
			ledger_applied_at = $7,
			ledger_trace_id = $8,
			updated_at = $9
		WHERE unit_id = $1 AND id = $2
	`

	result, err := tx.Exec(ctx, query,
		unitID,
		bookingID,
		ledger.Applied,
		nullString(ledger.Key),
		ledger.Count,
		nullString(ledger.SlotKey),
		ledger.AppliedAt,
		nullString(ledger.LastMutationTraceID),
		time.Now(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update booking ledger: %w", err)
	}

	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrBookingNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Ensure PostgresBookingRepository implements BookingLedgerRepository
var _ BookingLedgerRepository = (*PostgresBookingRepository)(nil)
