package payment

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerGateway stops calling the wrapped gateway after repeated faults.
type BreakerGateway struct {
	next    Gateway
	breaker *gobreaker.CircuitBreaker[ChargeResult]
	timeout time.Duration
}

func NewBreakerGateway(name string, next Gateway, timeout time.Duration, logger *zap.Logger) *BreakerGateway {
	cb := gobreaker.NewCircuitBreaker[ChargeResult](gobreaker.Settings{
		Name:        "payment:" + name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("payment breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &BreakerGateway{next: next, breaker: cb, timeout: timeout}
}

func (g *BreakerGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	result, err := g.breaker.Execute(func() (ChargeResult, error) {
		chargeCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return g.next.Charge(chargeCtx, req)
	})
	if err != nil {
		return ChargeResult{}, Error.Wrap(err)
	}
	return result, nil
}
