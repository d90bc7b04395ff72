package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/tablewise/seating/internal/allocation"
	"github.com/tablewise/seating/internal/domain"
	"github.com/tablewise/seating/internal/logger"
	"github.com/tablewise/seating/internal/repository"
	"github.com/tablewise/seating/internal/telemetry"
)

// AllocationAlgoVersion tags audit records with the decision algorithm
// revision
const AllocationAlgoVersion = "v1"

// SuggestRequest asks for a seating decision for one booking
type SuggestRequest struct {
	UnitID    string    `json:"unit_id"`
	BookingID string    `json:"booking_id"`
	PartySize int       `json:"party_size"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// SuggestResponse carries the decision and, when one was produced, its
// audit record
type SuggestResponse struct {
	Decision domain.Decision          `json:"decision"`
	Record   *domain.AllocationRecord `json:"record,omitempty"`
}

// AllocationService produces seating decisions and their audit trail
type AllocationService interface {
	Suggest(ctx context.Context, req SuggestRequest) (*SuggestResponse, error)
}

// allocationService implements AllocationService
type allocationService struct {
	settingsRepo  repository.SettingsRepository
	floorplanRepo repository.FloorplanRepository
	recordRepo    repository.AllocationRecordRepository
	publisher     EventPublisher
	log           *logger.Logger
	now           func() time.Time
}

// NewAllocationService creates a new allocation service
func NewAllocationService(
	settingsRepo repository.SettingsRepository,
	floorplanRepo repository.FloorplanRepository,
	recordRepo repository.AllocationRecordRepository,
	publisher EventPublisher,
	log *logger.Logger,
) AllocationService {
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &allocationService{
		settingsRepo:  settingsRepo,
		floorplanRepo: floorplanRepo,
		recordRepo:    recordRepo,
		publisher:     publisher,
		log:           log,
		now:           time.Now,
	}
}

// Suggest loads the unit's settings and floorplan, runs the decision
// engine, and writes the audit record. Audit failures are logged but never
// fail the decision.
func (s *allocationService) Suggest(ctx context.Context, req SuggestRequest) (*SuggestResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.allocation.suggest")
	defer span.End()

	span.SetAttributes(
		attribute.String("unit_id", req.UnitID),
		attribute.String("booking_id", req.BookingID),
		attribute.Int("party_size", req.PartySize),
	)

	if req.UnitID == "" {
		span.SetStatus(codes.Error, "invalid unit_id")
		return nil, domain.ErrInvalidUnitID
	}
	if req.BookingID == "" {
		span.SetStatus(codes.Error, "invalid booking_id")
		return nil, domain.ErrInvalidBookingID
	}

	settings, err := s.settingsRepo.Get(ctx, req.UnitID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	floorplan, err := s.floorplanRepo.Get(ctx, req.UnitID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load floorplan: %w", err)
	}

	decision := allocation.Decide(allocation.DecisionInput{
		PartySize:   req.PartySize,
		BookingDate: req.StartTime,
		Settings:    settings,
		Floorplan:   floorplan,
	})

	span.SetAttributes(
		attribute.String("reason", string(decision.Reason)),
		attribute.String("zone_id", decision.ZoneID),
	)

	resp := &SuggestResponse{Decision: decision}

	// No audit record when allocation was disabled or nothing was assigned
	if decision.Reason == domain.ReasonAllocationDisabled || !decision.Assigned() {
		span.SetStatus(codes.Ok, "")
		return resp, nil
	}

	record := s.buildRecord(req, settings, decision)
	resp.Record = &record

	if err := s.recordRepo.Upsert(ctx, record); err != nil {
		s.log.Warn("allocation record write failed",
			zap.String("unit_id", req.UnitID),
			zap.String("booking_id", req.BookingID),
			zap.String("event_id", record.EventID),
			zap.Error(err),
		)
		span.RecordError(err)
	}

	if err := s.publisher.PublishAllocationDecided(ctx, record); err != nil {
		s.log.Warn("allocation event publish failed",
			zap.String("unit_id", req.UnitID),
			zap.String("booking_id", req.BookingID),
			zap.Error(err),
		)
		span.RecordError(err)
	}

	span.SetStatus(codes.Ok, "")
	return resp, nil
}

func (s *allocationService) buildRecord(req SuggestRequest, settings domain.SeatingSettings, decision domain.Decision) domain.AllocationRecord {
	traceID := req.TraceID
	if traceID == "" {
		traceID = uuid.New().String()
	}

	return domain.AllocationRecord{
		EventID:                allocationEventID(req, settings, decision),
		UnitID:                 req.UnitID,
		BookingID:              req.BookingID,
		ZoneID:                 decision.ZoneID,
		TableIDs:               decision.TableIDs,
		TraceID:                traceID,
		DecidedAtMs:            s.now().UnixMilli(),
		Strategy:               settings.Strategy,
		DiagnosticsSummary:     string(decision.Reason),
		ComputedForStartTimeMs: req.StartTime.UnixMilli(),
		ComputedForEndTimeMs:   req.EndTime.UnixMilli(),
		ComputedForHeadcount:   req.PartySize,
		AlgoVersion:            AllocationAlgoVersion,
	}
}

// allocationEventID hashes the decision key tuple into a stable event id,
// so a retried decision upserts the same audit row.
func allocationEventID(req SuggestRequest, settings domain.SeatingSettings, decision domain.Decision) string {
	key := strings.Join([]string{
		req.UnitID,
		req.BookingID,
		fmt.Sprintf("%d", req.StartTime.UnixMilli()),
		fmt.Sprintf("%d", req.EndTime.UnixMilli()),
		fmt.Sprintf("%d", req.PartySize),
		string(settings.Mode),
		string(settings.Strategy),
		string(decision.Reason),
		decision.ZoneID,
		strings.Join(decision.TableIDs, ","),
		AllocationAlgoVersion,
	}, "|")

	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Ensure allocationService implements AllocationService
var _ AllocationService = (*allocationService)(nil)
