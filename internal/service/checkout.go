package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
	"github.com/fjod/go_cart/shopping-cart/internal/logger"
	"github.com/fjod/go_cart/shopping-cart/internal/payment"
	"github.com/fjod/go_cart/shopping-cart/internal/pricing"
)

type CheckoutResult struct {
	Identifier string                 `json:"identifier"`
	Status     string                 `json:"status"`
	Payment    domain.PaymentMethod   `json:"payment"`
	Gateway    string                 `json:"gateway"`
	OrderID    string                 `json:"order_id"`
	Price      decimal.Decimal        `json:"price"`
	Currency   string                 `json:"currency"`
	Items      []domain.HistoryRecord `json:"items"`
}

// Checkout charges the priced cart, writes history and the outbox event in one
// transaction and empties the cart. A refused charge leaves the cart intact.
func (s *CartService) Checkout(ctx context.Context, actor domain.Actor, ownerID int64) (CheckoutResult, error) {
	if err := authorize(actor, ownerID); err != nil {
		return CheckoutResult{}, err
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	cart, err := s.load(ctx, ownerID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if cart.IsEmpty() {
		return CheckoutResult{}, domain.NewValidationError("cart", domain.MsgCartEmpty)
	}
	if _, mixed := cart.Currency(); mixed {
		return CheckoutResult{}, domain.NewValidationError("cart", domain.MsgCurrencyMismatch)
	}

	snapshot := s.pricing.Price(cart, actor.UserID)
	identifier := s.newID()

	charge, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		Identifier: identifier,
		UserID:     ownerID,
		PaidBy:     actor.UserID,
		Amount:     snapshot.Price,
		Currency:   snapshot.Currency,
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	log := logger.WithTrace(ctx, s.logger).With(
		zap.String("identifier", identifier),
		zap.Int64("user_id", ownerID),
		zap.Int64("paid_by", actor.UserID),
	)

	if charge.Status != domain.PaymentSuccess {
		log.Warn("payment refused",
			zap.Stringer("status", charge.Status),
			zap.String("reason", charge.Reason),
		)
		return CheckoutResult{}, &domain.PaymentRefusedError{Identifier: identifier, Reason: charge.Reason}
	}

	now := s.now()
	records := historyRecords(snapshot, identifier, charge, actor.UserID, now)

	record := domain.PaymentRecord{
		Identifier: identifier,
		UserID:     ownerID,
		Gateway:    charge.Gateway,
		OrderID:    charge.OrderID,
		Amount:     snapshot.Price,
		Currency:   snapshot.Currency,
		Status:     charge.Status,
	}
	event := domain.CheckoutCompleted{
		Identifier:  identifier,
		UserID:      ownerID,
		PaidBy:      actor.UserID,
		Items:       records,
		Price:       snapshot.Price,
		Currency:    snapshot.Currency,
		CompletedAt: now,
	}

	if err := s.history.SaveCheckout(ctx, records, record, event); err != nil {
		s.recordUnpaidHistory(ctx, log, record, actor.UserID, err)
		return CheckoutResult{}, err
	}
	s.rememberUser(ctx, actor)

	// History is committed. A cart left behind here is cleared by the
	// checkout consumer once the event is published.
	if err := s.store.Clear(ctx, ownerID); err != nil {
		log.Error("failed to clear cart after checkout", zap.Error(err))
	}

	log.Info("checkout completed",
		zap.String("order_id", charge.OrderID),
		zap.Stringer("price", snapshot.Price),
	)

	return CheckoutResult{
		Identifier: identifier,
		Status:     charge.Status.String(),
		Payment:    charge.Method,
		Gateway:    charge.Gateway,
		OrderID:    charge.OrderID,
		Price:      snapshot.Price,
		Currency:   snapshot.Currency,
		Items:      records,
	}, nil
}

// recordUnpaidHistory leaves a trace of a charge that succeeded at the gateway
// but never reached the history tables. The cart is kept.
func (s *CartService) recordUnpaidHistory(ctx context.Context, log *zap.Logger, record domain.PaymentRecord, paidBy int64, cause error) {
	log.Error("payment unrecorded",
		zap.String("gateway", record.Gateway),
		zap.String("order_id", record.OrderID),
		zap.Stringer("amount", record.Amount),
		zap.Error(cause),
	)

	event := domain.PaymentUnrecorded{
		Identifier: record.Identifier,
		UserID:     record.UserID,
		PaidBy:     paidBy,
		Gateway:    record.Gateway,
		OrderID:    record.OrderID,
		Amount:     record.Amount,
		Currency:   record.Currency,
		Reason:     cause.Error(),
		OccurredAt: s.now(),
	}
	if err := s.history.SaveEvent(ctx, record.Identifier, domain.EventPaymentUnrecorded, event); err != nil {
		log.Error("failed to save payment_unrecorded event",
			zap.String("order_id", record.OrderID),
			zap.Error(err),
		)
	}
}

func historyRecords(snapshot pricing.Snapshot, identifier string, charge payment.ChargeResult, actingUserID int64, now time.Time) []domain.HistoryRecord {
	records := make([]domain.HistoryRecord, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		records = append(records, domain.HistoryRecord{
			Identifier:    identifier,
			UserID:        snapshot.OwnerID,
			Component:     line.Component,
			ItemID:        line.ItemID,
			ItemName:      line.ItemName,
			Price:         line.Price,
			Discount:      line.Discount,
			Tax:           line.Tax,
			TaxPercentage: line.TaxPercentage,
			Currency:      line.Currency,
			Payment:       charge.Method,
			PaymentStatus: charge.Status,
			UserModified:  actingUserID,
			TimeCreated:   now,
			TimeModified:  now,
		})
	}
	return records
}
