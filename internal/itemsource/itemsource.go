package itemsource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

// Provider resolves items owned by one component.
type Provider interface {
	Item(ctx context.Context, itemID int64) (domain.CartItem, error)
}

type ProviderFunc func(ctx context.Context, itemID int64) (domain.CartItem, error)

func (f ProviderFunc) Item(ctx context.Context, itemID int64) (domain.CartItem, error) {
	return f(ctx, itemID)
}

type BreakerSettings struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

type registration struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker[domain.CartItem]
}

// Registry dispatches item lookups to the provider registered for the
// component. Concurrent identical lookups share one provider call.
type Registry struct {
	providers map[string]registration
	settings  BreakerSettings
	sfg       singleflight.Group
	logger    *zap.Logger
}

func NewRegistry(settings BreakerSettings, logger *zap.Logger) *Registry {
	return &Registry{
		providers: make(map[string]registration),
		settings:  settings,
		logger:    logger,
	}
}

// Register is not safe to call concurrently with Resolve.
func (r *Registry) Register(component string, provider Provider) {
	r.providers[component] = registration{
		provider: provider,
		breaker:  r.newBreaker(component),
	}
}

func (r *Registry) newBreaker(component string) *gobreaker.CircuitBreaker[domain.CartItem] {
	return gobreaker.NewCircuitBreaker[domain.CartItem](gobreaker.Settings{
		Name:        "itemsource:" + component,
		MaxRequests: r.settings.MaxRequests,
		Interval:    r.settings.Interval,
		Timeout:     r.settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.settings.ConsecutiveFailures
		},
		// A missing item is an answer, not a provider fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrItemNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("item source breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Resolve returns the item or ItemNotFoundError when the component is
// unknown or the provider cannot find it.
func (r *Registry) Resolve(ctx context.Context, component string, itemID int64) (domain.CartItem, error) {
	reg, ok := r.providers[component]
	if !ok {
		return domain.CartItem{}, &domain.ItemNotFoundError{Component: component, ItemID: itemID}
	}

	v, err, _ := r.sfg.Do(domain.CompositeKey(component, itemID), func() (interface{}, error) {
		return reg.breaker.Execute(func() (domain.CartItem, error) {
			return reg.provider.Item(ctx, itemID)
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return domain.CartItem{}, err
		}
		return domain.CartItem{}, fmt.Errorf("resolve %s: %w", domain.CompositeKey(component, itemID), err)
	}

	item := v.(domain.CartItem)
	item.Component = component
	item.ItemID = itemID
	return item, nil
}

func (r *Registry) Components() []string {
	out := make([]string, 0, len(r.providers))
	for c := range r.providers {
		out = append(out, c)
	}
	return out
}
