package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/zeebo/errs"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

var (
	ErrCacheMiss = errors.New("cache miss")

	// Error is the class of storage failures surfaced by CartStore.
	Error = errs.Class("cart store")
)

// Backend is a key/value store holding one serialized cart per user.
type Backend interface {
	Get(ctx context.Context, userID int64) (*domain.Cart, error)
	Set(ctx context.Context, userID int64, cart *domain.Cart, ttl time.Duration) error
	Delete(ctx context.Context, userID int64) error
}

const (
	defaultGracePeriod = 15 * time.Minute
	maxJitterMinutes   = 5
)

// CartStore persists carts in a Backend. A miss reads as an empty cart.
type CartStore struct {
	backend Backend
	now     func() time.Time
	grace   time.Duration
}

type Option func(*CartStore)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *CartStore) { s.now = now }
}

// WithGracePeriod sets how long a cart outlives its expiration date in storage.
func WithGracePeriod(grace time.Duration) Option {
	return func(s *CartStore) { s.grace = grace }
}

func NewCartStore(backend Backend, opts ...Option) *CartStore {
	s := &CartStore{
		backend: backend,
		now:     time.Now,
		grace:   defaultGracePeriod,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the stored cart or an empty one. It never purges.
func (s *CartStore) Get(ctx context.Context, userID int64) (*domain.Cart, error) {
	cart, err := s.backend.Get(ctx, userID)
	if errors.Is(err, ErrCacheMiss) {
		return domain.NewCart(userID), nil
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if cart.Items == nil {
		cart.Items = make(map[string]domain.CartItem)
	}
	cart.UserID = userID
	return cart, nil
}

// Put overwrites the stored cart.
func (s *CartStore) Put(ctx context.Context, userID int64, cart *domain.Cart) error {
	if err := s.backend.Set(ctx, userID, cart, s.ttl(cart)); err != nil {
		return Error.Wrap(err)
	}
	return nil
}

// PurgeIfExpired clears the cart and reports true when it is past its
// expiration date. Missing or never-dated carts are left alone.
func (s *CartStore) PurgeIfExpired(ctx context.Context, userID int64) (bool, error) {
	cart, err := s.backend.Get(ctx, userID)
	if errors.Is(err, ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, Error.Wrap(err)
	}
	if !cart.IsExpired(s.now()) {
		return false, nil
	}
	if err := s.backend.Delete(ctx, userID); err != nil {
		return false, Error.Wrap(err)
	}
	return true, nil
}

func (s *CartStore) Clear(ctx context.Context, userID int64) error {
	if err := s.backend.Delete(ctx, userID); err != nil {
		return Error.Wrap(err)
	}
	return nil
}

// ttl is the remaining cart lifetime plus the grace period and a jitter so
// abandoned carts do not all expire at once.
func (s *CartStore) ttl(cart *domain.Cart) time.Duration {
	remaining := time.Duration(0)
	if !cart.ExpirationDate.IsZero() {
		remaining = cart.ExpirationDate.Sub(s.now())
		if remaining < 0 {
			remaining = 0
		}
	}
	jitter := time.Duration(rand.Intn(maxJitterMinutes)) * time.Minute
	return remaining + s.grace + jitter
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("%d_shopping_cart", userID)
}
