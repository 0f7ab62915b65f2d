package payment

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeebo/errs"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

// Error is the class of gateway faults. A refused charge is not an error, it
// is reported through ChargeResult.Status.
var Error = errs.Class("payment")

type ChargeRequest struct {
	Identifier string
	UserID     int64
	PaidBy     int64
	Amount     decimal.Decimal
	Currency   string
}

type ChargeResult struct {
	Status  domain.PaymentStatus
	Method  domain.PaymentMethod
	Gateway string
	OrderID string
	Reason  string
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

func validate(req ChargeRequest) error {
	if req.Identifier == "" {
		return Error.New("charge without identifier")
	}
	if req.Amount.IsNegative() {
		return Error.New("negative amount %s", req.Amount)
	}
	return nil
}

// CashierGateway records a payment taken at the cashier desk. The money is
// already in the till, so the charge always succeeds.
type CashierGateway struct {
	method domain.PaymentMethod
}

func NewCashierGateway(method domain.PaymentMethod) *CashierGateway {
	return &CashierGateway{method: method}
}

func (g *CashierGateway) Charge(_ context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := validate(req); err != nil {
		return ChargeResult{}, err
	}
	return ChargeResult{
		Status:  domain.PaymentSuccess,
		Method:  g.method,
		Gateway: "cashier",
		OrderID: fmt.Sprintf("DESK-%s", req.Identifier),
	}, nil
}

// Refusal reasons returned by the simulated online gateway.
const (
	RefusalInsufficientFunds = "insufficient funds"
	RefusalCardExpired       = "card expired"
	RefusalFraudSuspected    = "fraud suspected"
	RefusalLimitExceeded     = "limit exceeded"
	RefusalCardBlocked       = "card blocked"
	RefusalUnknown           = "unknown reason"
)

var refusals = []string{
	RefusalInsufficientFunds,
	RefusalCardExpired,
	RefusalFraudSuspected,
	RefusalLimitExceeded,
	RefusalCardBlocked,
}

// StatusSource decides the outcome of a simulated online charge.
type StatusSource interface {
	Status() (domain.PaymentStatus, string)
}

type RandomStatus struct{}

func (RandomStatus) Status() (domain.PaymentStatus, string) {
	return calcStatus(rand.Intn(101))
}

// calcStatus succeeds for rolls below 95 and maps the rest onto refusals.
func calcStatus(roll int) (domain.PaymentStatus, string) {
	if roll < 95 {
		return domain.PaymentSuccess, ""
	}
	other := roll - 95
	if other == 0 || other > len(refusals) {
		return domain.PaymentError, RefusalUnknown
	}
	return domain.PaymentError, refusals[other-1]
}

type FixedStatus struct {
	PaymentStatus domain.PaymentStatus
	Reason        string
}

func (f FixedStatus) Status() (domain.PaymentStatus, string) {
	return f.PaymentStatus, f.Reason
}

// OnlineGateway simulates an online payment provider.
type OnlineGateway struct {
	name   string
	status StatusSource
	now    func() time.Time
}

func NewOnlineGateway(name string, status StatusSource) *OnlineGateway {
	return &OnlineGateway{name: name, status: status, now: time.Now}
}

func (g *OnlineGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := validate(req); err != nil {
		return ChargeResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, Error.Wrap(err)
	}

	status, reason := g.status.Status()
	return ChargeResult{
		Status:  status,
		Method:  domain.PaymentMethodOnline,
		Gateway: g.name,
		OrderID: fmt.Sprintf("TXN-%d", g.now().UnixNano()),
		Reason:  reason,
	}, nil
}

// Router picks the cashier gateway when someone pays for another user and the
// online gateway otherwise.
type Router struct {
	cashier Gateway
	online  Gateway
}

func NewRouter(cashier, online Gateway) *Router {
	return &Router{cashier: cashier, online: online}
}

func (r *Router) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if req.PaidBy != req.UserID {
		return r.cashier.Charge(ctx, req)
	}
	return r.online.Charge(ctx, req)
}
