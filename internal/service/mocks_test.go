package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/tablewise/seating/internal/database"
	"github.com/tablewise/seating/internal/domain"
	"github.com/tablewise/seating/internal/repository"
)

// MockTxRunner runs the transaction callback directly, without a database
type MockTxRunner struct {
	WithTransactionFunc func(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context, tx pgx.Tx) error) error
}

func (m *MockTxRunner) WithTransaction(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, opts, fn)
	}
	return fn(ctx, nil)
}

// MockBookingLedgerRepository is a mock implementation of BookingLedgerRepository
type MockBookingLedgerRepository struct {
	GetForUpdateFunc func(ctx context.Context, tx pgx.Tx, unitID, bookingID string) (*domain.Booking, error)
	UpdateLedgerFunc func(ctx context.Context, tx pgx.Tx, unitID, bookingID string, ledger domain.CapacityLedger) error
}

func (m *MockBookingLedgerRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, unitID, bookingID string) (*domain.Booking, error) {
	if m.GetForUpdateFunc != nil {
		return m.GetForUpdateFunc(ctx, tx, unitID, bookingID)
	}
	return nil, domain.ErrBookingNotFound
}

func (m *MockBookingLedgerRepository) UpdateLedger(ctx context.Context, tx pgx.Tx, unitID, bookingID string, ledger domain.CapacityLedger) error {
	if m.UpdateLedgerFunc != nil {
		return m.UpdateLedgerFunc(ctx, tx, unitID, bookingID, ledger)
	}
	return nil
}

// MockCapacityDocumentRepository is a mock implementation of CapacityDocumentRepository
type MockCapacityDocumentRepository struct {
	GetFunc          func(ctx context.Context, unitID, dateKey string) (domain.RawCapacityDocument, error)
	GetForUpdateFunc func(ctx context.Context, tx pgx.Tx, unitID, dateKey string) (domain.RawCapacityDocument, bool, error)
	UpsertFunc       func(ctx context.Context, tx pgx.Tx, unitID, dateKey string, doc domain.CapacityDocument) error
	ListFunc         func(ctx context.Context, unitID, fromKey, toKey string, limit, offset int) ([]repository.StoredCapacityDocument, error)
	CorrectFunc      func(ctx context.Context, unitID, dateKey string, doc domain.CapacityDocument) error
}

func (m *MockCapacityDocumentRepository) Get(ctx context.Context, unitID, dateKey string) (domain.RawCapacityDocument, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, unitID, dateKey)
	}
	return domain.RawCapacityDocument{}, domain.ErrCapacityDocumentNotFound
}

func (m *MockCapacityDocumentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, unitID, dateKey string) (domain.RawCapacityDocument, bool, error) {
	if m.GetForUpdateFunc != nil {
		return m.GetForUpdateFunc(ctx, tx, unitID, dateKey)
	}
	return domain.RawCapacityDocument{}, false, nil
}

func (m *MockCapacityDocumentRepository) Upsert(ctx context.Context, tx pgx.Tx, unitID, dateKey string, doc domain.CapacityDocument) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, tx, unitID, dateKey, doc)
	}
	return nil
}

func (m *MockCapacityDocumentRepository) List(ctx context.Context, unitID, fromKey, toKey string, limit, offset int) ([]repository.StoredCapacityDocument, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, unitID, fromKey, toKey, limit, offset)
	}
	return nil, nil
}

func (m *MockCapacityDocumentRepository) Correct(ctx context.Context, unitID, dateKey string, doc domain.CapacityDocument) error {
	if m.CorrectFunc != nil {
		return m.CorrectFunc(ctx, unitID, dateKey, doc)
	}
	return nil
}

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	GetFunc        func(ctx context.Context, unitID string) (domain.SeatingSettings, error)
	InvalidateFunc func(ctx context.Context, unitID string) error
}

func (m *MockSettingsRepository) Get(ctx context.Context, unitID string) (domain.SeatingSettings, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, unitID)
	}
	return domain.DefaultSeatingSettings(), nil
}

func (m *MockSettingsRepository) Invalidate(ctx context.Context, unitID string) error {
	if m.InvalidateFunc != nil {
		return m.InvalidateFunc(ctx, unitID)
	}
	return nil
}

// MockFloorplanRepository is a mock implementation of FloorplanRepository
type MockFloorplanRepository struct {
	GetFunc func(ctx context.Context, unitID string) (domain.Floorplan, error)
}

func (m *MockFloorplanRepository) Get(ctx context.Context, unitID string) (domain.Floorplan, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, unitID)
	}
	return domain.Floorplan{}, domain.ErrFloorplanNotFound
}

// MockAllocationRecordRepository is a mock implementation of AllocationRecordRepository
type MockAllocationRecordRepository struct {
	UpsertFunc func(ctx context.Context, record domain.AllocationRecord) error
	Records    []domain.AllocationRecord
}

func (m *MockAllocationRecordRepository) Upsert(ctx context.Context, record domain.AllocationRecord) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, record)
	}
	m.Records = append(m.Records, record)
	return nil
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	AllocationEvents []domain.AllocationRecord
	CapacityEvents   []CapacityAppliedEvent
	ShouldFail       error
}

func (m *MockEventPublisher) PublishAllocationDecided(ctx context.Context, record domain.AllocationRecord) error {
	if m.ShouldFail != nil {
		return m.ShouldFail
	}
	m.AllocationEvents = append(m.AllocationEvents, record)
	return nil
}

func (m *MockEventPublisher) PublishCapacityApplied(ctx context.Context, event CapacityAppliedEvent) error {
	if m.ShouldFail != nil {
		return m.ShouldFail
	}
	m.CapacityEvents = append(m.CapacityEvents, event)
	return nil
}

func (m *MockEventPublisher) Close() error {
	return nil
}

// Ensure mocks implement their interfaces
var (
	_ TxRunner                              = (*MockTxRunner)(nil)
	_ repository.BookingLedgerRepository    = (*MockBookingLedgerRepository)(nil)
	_ repository.CapacityDocumentRepository = (*MockCapacityDocumentRepository)(nil)
	_ repository.SettingsRepository         = (*MockSettingsRepository)(nil)
	_ repository.FloorplanRepository        = (*MockFloorplanRepository)(nil)
	_ repository.AllocationRecordRepository = (*MockAllocationRecordRepository)(nil)
	_ EventPublisher                        = (*MockEventPublisher)(nil)
)
