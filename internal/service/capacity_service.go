package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/tablewise/seating/internal/capacity"
	"github.com/tablewise/seating/internal/database"
	"github.com/tablewise/seating/internal/domain"
	"github.com/tablewise/seating/internal/logger"
	"github.com/tablewise/seating/internal/repository"
	"github.com/tablewise/seating/internal/telemetry"
)

// TxRunner abstracts the transactional primitive so the ledger service can
// be tested against mocks that run the callback without a database.
type TxRunner interface {
	WithTransaction(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// ApplyLedgerRequest applies a booking's current capacity-relevant state to
// the aggregate under one mutation trace id. Retries of a failed attempt
// must reuse the same trace id.
type ApplyLedgerRequest struct {
	UnitID    string `json:"unit_id"`
	BookingID string `json:"booking_id"`
	TraceID   string `json:"trace_id"`
}

// ApplyLedgerResult reports what the transaction did
type ApplyLedgerResult struct {
	Replayed bool                   `json:"replayed"`
	Entries  []domain.MutationEntry `json:"entries,omitempty"`
	Ledger   domain.CapacityLedger  `json:"ledger"`
}

// CapacityView is a read-only snapshot of one capacity document with its
// invariant findings
type CapacityView struct {
	UnitID   string                  `json:"unit_id"`
	DateKey  string                  `json:"date_key"`
	Document domain.CapacityDocument `json:"document"`
	Findings []capacity.Finding      `json:"findings,omitempty"`
}

// CapacityService owns all writes to capacity documents
type CapacityService interface {
	// ApplyLedger runs the ledger transaction for one booking
	ApplyLedger(ctx context.Context, req ApplyLedgerRequest) (*ApplyLedgerResult, error)

	// GetCapacity returns the normalized document and its raw findings
	GetCapacity(ctx context.Context, unitID, dateKey string) (*CapacityView, error)
}

// capacityService implements CapacityService
type capacityService struct {
	db        TxRunner
	bookings  repository.BookingLedgerRepository
	documents repository.CapacityDocumentRepository
	publisher EventPublisher
	warned    *capacity.WarnedKeys
	log       *logger.Logger
	now       func() time.Time
}

// NewCapacityService creates a new capacity ledger service
func NewCapacityService(
	db TxRunner,
	bookings repository.BookingLedgerRepository,
	documents repository.CapacityDocumentRepository,
	publisher EventPublisher,
	warned *capacity.WarnedKeys,
	log *logger.Logger,
) CapacityService {
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	if warned == nil {
		warned = capacity.NewWarnedKeys(capacity.DefaultWarnTTL, capacity.DefaultWarnMaxEntries)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &capacityService{
		db:        db,
		bookings:  bookings,
		documents: documents,
		publisher: publisher,
		warned:    warned,
		log:       log,
		now:       time.Now,
	}
}

// ApplyLedger diffs the booking's applied ledger state against its desired
// state and applies the resulting mutation plan atomically with the ledger
// stamp. The trace id guards against replays at both booking and document
// granularity, so blind retries after a conflict are safe even when a
// multi-document plan partially committed.
func (s *capacityService) ApplyLedger(ctx context.Context, req ApplyLedgerRequest) (*ApplyLedgerResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.capacity.apply_ledger")
	defer span.End()

	span.SetAttributes(
		attribute.String("unit_id", req.UnitID),
		attribute.String("booking_id", req.BookingID),
		attribute.String("trace_id", req.TraceID),
	)

	if req.UnitID == "" {
		span.SetStatus(codes.Error, "invalid unit_id")
		return nil, domain.ErrInvalidUnitID
	}
	if req.BookingID == "" {
		span.SetStatus(codes.Error, "invalid booking_id")
		return nil, domain.ErrInvalidBookingID
	}
	if req.TraceID == "" {
		span.SetStatus(codes.Error, "invalid trace_id")
		return nil, domain.ErrInvalidTraceID
	}

	result := &ApplyLedgerResult{}

	err := s.db.WithTransaction(ctx, database.DefaultTxOptions(), func(ctx context.Context, tx pgx.Tx) error {
		booking, err := s.bookings.GetForUpdate(ctx, tx, req.UnitID, req.BookingID)
		if err != nil {
			return err
		}

		desired := booking.DesiredLedger(req.TraceID, s.now())

		if s.isReplay(booking.Ledger, desired, req.TraceID) {
			if s.warned.ShouldWarn(req.UnitID + "|" + req.BookingID + "|" + req.TraceID) {
				s.log.Info("ledger mutation replay detected, skipping",
					zap.String("unit_id", req.UnitID),
					zap.String("booking_id", req.BookingID),
					zap.String("trace_id", req.TraceID),
				)
			}
			result.Replayed = true
			result.Ledger = booking.Ledger
			return nil
		}

		plan := capacity.PlanMutations(booking.Transition(desired))
		for _, entry := range plan {
			if err := s.applyEntry(ctx, tx, req.UnitID, req.TraceID, entry); err != nil {
				return err
			}
		}

		if err := s.bookings.UpdateLedger(ctx, tx, req.UnitID, req.BookingID, desired); err != nil {
			return err
		}

		result.Entries = plan
		result.Ledger = desired
		return nil
	})
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if !result.Replayed && len(result.Entries) > 0 {
		event := CapacityAppliedEvent{
			UnitID:    req.UnitID,
			BookingID: req.BookingID,
			TraceID:   req.TraceID,
			Entries:   result.Entries,
			AppliedAt: s.now(),
		}
		if err := s.publisher.PublishCapacityApplied(ctx, event); err != nil {
			s.log.Warn("capacity event publish failed",
				zap.String("unit_id", req.UnitID),
				zap.String("booking_id", req.BookingID),
				zap.Error(err),
			)
		}
	}

	span.SetAttributes(
		attribute.Bool("replayed", result.Replayed),
		attribute.Int("entry_count", len(result.Entries)),
	)
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// isReplay reports whether this call is a retried duplicate of a mutation
// the ledger already reflects. A matching trace id alone is not enough:
// the desired end state must also match, otherwise the booking changed
// again under the same trace id and must be re-applied.
func (s *capacityService) isReplay(current, desired domain.CapacityLedger, traceID string) bool {
	return current.LastMutationTraceID == traceID &&
		current.Applied == desired.Applied &&
		current.Key == desired.Key &&
		current.Count == desired.Count
}

func (s *capacityService) applyEntry(ctx context.Context, tx pgx.Tx, unitID, traceID string, entry domain.MutationEntry) error {
	raw, found, err := s.documents.GetForUpdate(ctx, tx, unitID, entry.Key)
	if err != nil {
		return err
	}

	// Per-document replay guard: a prior attempt of this same trace may
	// have committed some documents of a multi-document plan before the
	// conflict.
	if found && raw.LastMutationTraceID == traceID {
		return nil
	}

	if found {
		s.reportFindings(unitID, entry.Key, raw)
	}

	doc := capacity.Normalize(raw)
	doc = capacity.ApplyEntry(doc, entry)
	doc.LastMutationTraceID = traceID

	return s.documents.Upsert(ctx, tx, unitID, entry.Key, doc)
}

// reportFindings logs invariant violations on the previous document state,
// rate-limited per (unit, date, finding). The subsequent normalize-and-write
// repairs them, so they are operator signals, not errors.
func (s *capacityService) reportFindings(unitID, dateKey string, raw domain.RawCapacityDocument) {
	for _, finding := range capacity.Scan(raw) {
		if !s.warned.ShouldWarn(unitID + "|" + dateKey + "|" + string(finding)) {
			continue
		}
		s.log.Warn("capacity invariant violation, repairing",
			zap.String("unit_id", unitID),
			zap.String("date_key", dateKey),
			zap.String("finding", string(finding)),
		)
	}
}

// GetCapacity returns the normalized view of one capacity document together
// with the raw document's findings
func (s *capacityService) GetCapacity(ctx context.Context, unitID, dateKey string) (*CapacityView, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.capacity.get")
	defer span.End()

	span.SetAttributes(
		attribute.String("unit_id", unitID),
		attribute.String("date_key", dateKey),
	)

	if unitID == "" {
		span.SetStatus(codes.Error, "invalid unit_id")
		return nil, domain.ErrInvalidUnitID
	}
	if dateKey == "" {
		span.SetStatus(codes.Error, "invalid date_key")
		return nil, domain.ErrInvalidDateKey
	}

	raw, err := s.documents.Get(ctx, unitID, dateKey)
	if err != nil {
		if !domain.IsNotFoundError(err) {
			telemetry.SetSpanError(ctx, err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to read capacity document: %w", err)
		}
		span.SetStatus(codes.Error, "not found")
		return nil, err
	}

	view := &CapacityView{
		UnitID:   unitID,
		DateKey:  dateKey,
		Document: capacity.Normalize(raw),
		Findings: capacity.Scan(raw),
	}

	span.SetStatus(codes.Ok, "")
	return view, nil
}

// Ensure capacityService implements CapacityService
var _ CapacityService = (*capacityService)(nil)
