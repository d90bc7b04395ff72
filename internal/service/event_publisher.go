package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/tablewise/seating/internal/domain"
	"github.com/tablewise/seating/internal/logger"
)

// EventPublisher publishes seating events. Delivery is fire-and-forget:
// publish failures are logged and never fail the caller's transaction.
type EventPublisher interface {
	// PublishAllocationDecided publishes the audit record of a decision
	PublishAllocationDecided(ctx context.Context, record domain.AllocationRecord) error

	// PublishCapacityApplied publishes the applied mutation plan
	PublishCapacityApplied(ctx context.Context, event CapacityAppliedEvent) error

	// Close closes the event publisher
	Close() error
}

// CapacityAppliedEvent describes a committed ledger mutation
type CapacityAppliedEvent struct {
	UnitID    string                 `json:"unit_id"`
	BookingID string                 `json:"booking_id"`
	TraceID   string                 `json:"trace_id"`
	Entries   []domain.MutationEntry `json:"entries"`
	AppliedAt time.Time              `json:"applied_at"`
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	client          *kgo.Client
	allocationTopic string
	capacityTopic   string
	log             *logger.Logger
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers         []string
	ClientID        string
	AllocationTopic string
	CapacityTopic   string
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(cfg *EventPublisherConfig, log *logger.Logger) (*KafkaEventPublisher, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "seating-engine"
	}
	allocationTopic := cfg.AllocationTopic
	if allocationTopic == "" {
		allocationTopic = "seating.allocation.decided"
	}
	capacityTopic := cfg.CapacityTopic
	if capacityTopic == "" {
		capacityTopic = "seating.capacity.applied"
	}
	if log == nil {
		log = logger.NewNop()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(clientID),
		kgo.ProducerBatchMaxBytes(1<<20),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &KafkaEventPublisher{
		client:          client,
		allocationTopic: allocationTopic,
		capacityTopic:   capacityTopic,
		log:             log,
	}, nil
}

// PublishAllocationDecided publishes the audit record of a decision
func (p *KafkaEventPublisher) PublishAllocationDecided(ctx context.Context, record domain.AllocationRecord) error {
	return p.publish(ctx, p.allocationTopic, record.UnitID+":"+record.BookingID, record)
}

// PublishCapacityApplied publishes the applied mutation plan
func (p *KafkaEventPublisher) PublishCapacityApplied(ctx context.Context, event CapacityAppliedEvent) error {
	return p.publish(ctx, p.capacityTopic, event.UnitID+":"+event.BookingID, event)
}

func (p *KafkaEventPublisher) publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}

	// Async produce; the delivery callback only logs. Event delivery must
	// never block or roll back the decision or ledger transaction.
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			p.log.Warn("event publish failed",
				zap.String("topic", r.Topic),
				zap.String("key", string(r.Key)),
				zap.Error(err),
			)
		}
	})

	return nil
}

// Close flushes pending records and closes the Kafka client
func (p *KafkaEventPublisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.log.Warn("kafka flush on close failed", zap.Error(err))
	}
	p.client.Close()
	return nil
}

// NoOpEventPublisher is a no-op implementation of EventPublisher, used when
// Kafka is disabled and in tests
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

// PublishAllocationDecided is a no-op
func (p *NoOpEventPublisher) PublishAllocationDecided(ctx context.Context, record domain.AllocationRecord) error {
	return nil
}

// PublishCapacityApplied is a no-op
func (p *NoOpEventPublisher) PublishCapacityApplied(ctx context.Context, event CapacityAppliedEvent) error {
	return nil
}

// Close is a no-op
func (p *NoOpEventPublisher) Close() error {
	return nil
}

// Ensure implementations satisfy EventPublisher
var (
	_ EventPublisher = (*KafkaEventPublisher)(nil)
	_ EventPublisher = (*NoOpEventPublisher)(nil)
)
