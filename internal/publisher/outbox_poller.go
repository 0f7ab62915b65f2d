package publisher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/shopping-cart/internal/history"
)

const DefaultTopic = "shopping-cart-events"

type EventStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*history.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id uuid.UUID) error
	DeleteProcessedEvents(ctx context.Context, before time.Time) (int64, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller publishes stored events to Kafka and prunes old published ones.
type OutboxPoller struct {
	batchSize int
	eventTick time.Duration
	purgeTick time.Duration
	retention time.Duration
	repo      EventStore
	writer    MessageWriter
	logger    *zap.Logger
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

func NewOutboxPoller(repo EventStore, writer MessageWriter, logger *zap.Logger) *OutboxPoller {
	return &OutboxPoller{
		batchSize: 100,
		eventTick: time.Second,
		purgeTick: time.Hour,
		retention: 7 * 24 * time.Hour,
		repo:      repo,
		writer:    writer,
		logger:    logger,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	purgeTicker := time.NewTicker(p.purgeTick)
	defer eventTicker.Stop()
	defer purgeTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-purgeTicker.C:
			p.purgeProcessedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processUnpublishedEvents returns the number of events published.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("failed to fetch outbox events", zap.Error(err))
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.logger.Error("failed to publish event",
				zap.Stringer("event_id", event.ID),
				zap.String("event_type", event.EventType),
				zap.Error(err),
			)
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.logger.Error("failed to mark event as processed", zap.Stringer("event_id", event.ID), zap.Error(err))
			continue
		}
		published++
	}
	return published
}

func (p *OutboxPoller) purgeProcessedEvents(ctx context.Context) {
	deleted, err := p.repo.DeleteProcessedEvents(ctx, time.Now().Add(-p.retention))
	if err != nil {
		p.logger.Error("failed to purge processed events", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("purged processed outbox events", zap.Int64("count", deleted))
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *history.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // checkout identifier keeps per-checkout ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
