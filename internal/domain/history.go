package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus int

const (
	PaymentPending PaymentStatus = iota
	PaymentSuccess
	PaymentError
	PaymentAborted
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentPending:
		return "pending"
	case PaymentSuccess:
		return "success"
	case PaymentError:
		return "error"
	case PaymentAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

type PaymentMethod string

const (
	PaymentMethodOnline      PaymentMethod = "online"
	PaymentMethodCashierCash PaymentMethod = "cashier_cash"
	PaymentMethodCashierCard PaymentMethod = "cashier_card"
)

// HistoryRecord is one purchased line kept after checkout.
type HistoryRecord struct {
	ID            int64           `json:"id,omitempty"`
	Identifier    string          `json:"identifier"`
	UserID        int64           `json:"user_id"`
	Component     string          `json:"component"`
	ItemID        int64           `json:"item_id"`
	ItemName      string          `json:"item_name"`
	Price         decimal.Decimal `json:"price"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	TaxPercentage decimal.Decimal `json:"tax_percentage"`
	Currency      string          `json:"currency"`
	Payment       PaymentMethod   `json:"payment"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	UserModified  int64           `json:"user_modified"`
	TimeCreated   time.Time       `json:"time_created"`
	TimeModified  time.Time       `json:"time_modified"`
}

// PaymentRecord is the gateway side of a checkout.
type PaymentRecord struct {
	Identifier string
	UserID     int64
	Gateway    string
	OrderID    string
	Amount     decimal.Decimal
	Currency   string
	Status     PaymentStatus
}

// CashReportRow is one line of the cashier report: a successful payment joined
// with the buyer, the cashier and the gateway order id.
type CashReportRow struct {
	Identifier    string          `json:"identifier"`
	TimeCreated   time.Time       `json:"time_created"`
	TimeModified  time.Time       `json:"time_modified"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	LastName      string          `json:"last_name"`
	FirstName     string          `json:"first_name"`
	ItemID        int64           `json:"item_id"`
	ItemName      string          `json:"item_name"`
	Payment       PaymentMethod   `json:"payment"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Gateway       string          `json:"gateway"`
	OrderID       string          `json:"order_id"`
	UserModified  string          `json:"user_modified"`
}
