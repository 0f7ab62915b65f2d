package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

const DefaultGroupID = "shopping-cart-cleanup"

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CartClearer removes a user's cart; *cache.CartStore implements it.
type CartClearer interface {
	Clear(ctx context.Context, userID int64) error
}

// CheckoutConsumer reads checkout_completed events back from the outbox topic
// and clears the owner's cart. Checkout clears the cart inline, so this only
// catches carts left behind when that clear failed.
type CheckoutConsumer struct {
	reader MessageReader
	carts  CartClearer
	logger *zap.Logger
}

func NewKafkaReader(topic, groupID string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

func NewCheckoutConsumer(reader MessageReader, carts CartClearer, logger *zap.Logger) *CheckoutConsumer {
	return &CheckoutConsumer{reader: reader, carts: carts, logger: logger}
}

func (c *CheckoutConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *CheckoutConsumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Warn("error closing kafka reader", zap.Error(err))
	}
}

// processMessage reports whether a cart was cleared.
func (c *CheckoutConsumer) processMessage(ctx context.Context) bool {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Error("error reading message", zap.Error(err))
		}
		return false
	}

	if eventType(m) != domain.EventCheckoutCompleted.String() {
		return false
	}

	var event domain.CheckoutCompleted
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.logger.Error("error parsing checkout event", zap.Error(err), zap.ByteString("key", m.Key))
		return false
	}
	if event.UserID <= 0 {
		c.logger.Warn("checkout event without user_id", zap.String("identifier", event.Identifier))
		return false
	}

	if err := c.carts.Clear(ctx, event.UserID); err != nil {
		c.logger.Error("failed to clear cart",
			zap.String("identifier", event.Identifier),
			zap.Int64("user_id", event.UserID),
			zap.Error(err),
		)
		return false
	}
	return true
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
