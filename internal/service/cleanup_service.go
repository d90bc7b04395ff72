package service

import (
	"context"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/tablewise/seating/internal/capacity"
	"github.com/tablewise/seating/internal/domain"
	"github.com/tablewise/seating/internal/logger"
	"github.com/tablewise/seating/internal/repository"
	"github.com/tablewise/seating/internal/telemetry"
)

// ScanOptions bounds a batch scan over stored capacity documents.
// Empty UnitID scans all units, empty date keys leave the range open.
type ScanOptions struct {
	UnitID    string
	FromKey   string
	ToKey     string
	BatchSize int
	Limit     int
}

// DocumentReport is the scan result for one flagged document
type DocumentReport struct {
	UnitID     string                  `json:"unit_id"`
	DateKey    string                  `json:"date_key"`
	Findings   []capacity.Finding      `json:"findings"`
	Normalized domain.CapacityDocument `json:"normalized"`
}

// ScanReport summarizes one batch scan
type ScanReport struct {
	Scanned   int              `json:"scanned"`
	Flagged   []DocumentReport `json:"flagged,omitempty"`
	Corrected int              `json:"corrected"`
}

// CleanupService audits stored capacity documents and, in apply mode,
// writes the normalizer's output back as a corrective fix.
type CleanupService interface {
	// Scan is read-only: it reports findings without writing
	Scan(ctx context.Context, opts ScanOptions) (*ScanReport, error)

	// Cleanup applies corrective writes for every flagged document
	Cleanup(ctx context.Context, opts ScanOptions) (*ScanReport, error)
}

// cleanupService implements CleanupService
type cleanupService struct {
	documents repository.CapacityDocumentRepository
	log       *logger.Logger
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(documents repository.CapacityDocumentRepository, log *logger.Logger) CleanupService {
	if log == nil {
		log = logger.NewNop()
	}
	return &cleanupService{
		documents: documents,
		log:       log,
	}
}

// Scan pages through stored documents and reports invariant findings
func (s *cleanupService) Scan(ctx context.Context, opts ScanOptions) (*ScanReport, error) {
	return s.run(ctx, opts, false)
}

// Cleanup scans and writes the normalized document wherever it differs
// from the stored one. Individual write failures are logged and skipped so
// one bad row does not abort the batch.
func (s *cleanupService) Cleanup(ctx context.Context, opts ScanOptions) (*ScanReport, error) {
	return s.run(ctx, opts, true)
}

func (s *cleanupService) run(ctx context.Context, opts ScanOptions, apply bool) (*ScanReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.cleanup.run")
	defer span.End()

	span.SetAttributes(
		attribute.String("unit_id", opts.UnitID),
		attribute.Bool("apply", apply),
	)

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	report := &ScanReport{}
	offset := 0

	for {
		if opts.Limit > 0 && report.Scanned >= opts.Limit {
			break
		}
		size := batchSize
		if opts.Limit > 0 && opts.Limit-report.Scanned < size {
			size = opts.Limit - report.Scanned
		}

		batch, err := s.documents.List(ctx, opts.UnitID, opts.FromKey, opts.ToKey, size, offset)
		if err != nil {
			telemetry.SetSpanError(ctx, err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to list capacity documents: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, stored := range batch {
			report.Scanned++

			findings := capacity.Scan(stored.Raw)
			normalized := capacity.Normalize(stored.Raw)
			if len(findings) == 0 && !needsCorrection(stored.Raw, normalized) {
				continue
			}

			report.Flagged = append(report.Flagged, DocumentReport{
				UnitID:     stored.UnitID,
				DateKey:    stored.DateKey,
				Findings:   findings,
				Normalized: normalized,
			})

			if !apply {
				continue
			}

			if err := s.documents.Correct(ctx, stored.UnitID, stored.DateKey, normalized); err != nil {
				s.log.Warn("corrective write failed",
					zap.String("unit_id", stored.UnitID),
					zap.String("date_key", stored.DateKey),
					zap.Error(err),
				)
				continue
			}
			report.Corrected++
		}

		offset += len(batch)
		if len(batch) < size {
			break
		}
	}

	span.SetAttributes(
		attribute.Int("scanned", report.Scanned),
		attribute.Int("flagged", len(report.Flagged)),
		attribute.Int("corrected", report.Corrected),
	)
	span.SetStatus(codes.Ok, "")
	return report, nil
}

// needsCorrection reports whether the stored raw document differs from its
// normalized form. Findings catch most cases; this also catches documents
// that scan clean but would still change shape, like a missing legacy
// count field.
func needsCorrection(raw domain.RawCapacityDocument, normalized domain.CapacityDocument) bool {
	return !reflect.DeepEqual(raw, normalized.Raw())
}

// Ensure cleanupService implements CleanupService
var _ CleanupService = (*cleanupService)(nil)
