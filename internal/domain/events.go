package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventPaymentRebooked   EventType = "payment_rebooked"
	EventCheckoutCompleted EventType = "checkout_completed"
	EventPaymentUnrecorded EventType = "payment_unrecorded"
)

func (e EventType) String() string {
	return string(e)
}

// PaymentRebooked records a cashier correction of a historical payment.
type PaymentRebooked struct {
	CashierID      int64     `json:"cashier_id"`
	AffectedUserID int64     `json:"affected_user_id"`
	Identifier     string    `json:"identifier"`
	Annotation     string    `json:"annotation"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type CheckoutCompleted struct {
	Identifier  string          `json:"identifier"`
	UserID      int64           `json:"user_id"`
	PaidBy      int64           `json:"paid_by"`
	Items       []HistoryRecord `json:"items"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	CompletedAt time.Time       `json:"completed_at"`
}

// PaymentUnrecorded marks a charge the gateway accepted whose history rows
// could not be written. OrderID is the gateway reference to reconcile against.
type PaymentUnrecorded struct {
	Identifier string          `json:"identifier"`
	UserID     int64           `json:"user_id"`
	PaidBy     int64           `json:"paid_by"`
	Gateway    string          `json:"gateway"`
	OrderID    string          `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Reason     string          `json:"reason"`
	OccurredAt time.Time       `json:"occurred_at"`
}
