package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
	"github.com/fjod/go_cart/shopping-cart/internal/logger"
	"github.com/fjod/go_cart/shopping-cart/internal/payment"
	"github.com/fjod/go_cart/shopping-cart/internal/pricing"
)

// CartStore is the persistence the service needs; *cache.CartStore implements it.
type CartStore interface {
	Get(ctx context.Context, userID int64) (*domain.Cart, error)
	Put(ctx context.Context, userID int64, cart *domain.Cart) error
	PurgeIfExpired(ctx context.Context, userID int64) (bool, error)
	Clear(ctx context.Context, userID int64) error
}

type ItemResolver interface {
	Resolve(ctx context.Context, component string, itemID int64) (domain.CartItem, error)
}

type HistoryStore interface {
	SaveCheckout(ctx context.Context, records []domain.HistoryRecord, payment domain.PaymentRecord, event domain.CheckoutCompleted) error
	SaveEvent(ctx context.Context, aggregateID string, eventType domain.EventType, payload any) error
}

// UserDirectory keeps the names shown in the cash report.
type UserDirectory interface {
	UpsertUser(ctx context.Context, id int64, firstName, lastName, email string) error
}

// RebookListener is notified once per manual rebooking.
type RebookListener interface {
	OnManualRebook(ctx context.Context, event domain.PaymentRebooked) error
}

type Config struct {
	MaxItems       int
	ExpirationTime time.Duration

	// CashierSectionHTML is shown verbatim in the cashier view.
	CashierSectionHTML string
}

type Dependencies struct {
	Store   CartStore
	Items   ItemResolver
	Pricing *pricing.Chain
	Gateway payment.Gateway
	History HistoryStore
	Rebook  RebookListener
	Reports ReportSource
	Users   UserDirectory
	Logger  *zap.Logger
}

type CartService struct {
	store   CartStore
	items   ItemResolver
	pricing *pricing.Chain
	gateway payment.Gateway
	history HistoryStore
	rebook  RebookListener
	reports ReportSource
	users   UserDirectory
	cfg     Config
	logger  *zap.Logger
	locks   *userLocks
	now     func() time.Time
	newID   func() string
}

func NewCartService(deps Dependencies, cfg Config) *CartService {
	return &CartService{
		store:   deps.Store,
		items:   deps.Items,
		pricing: deps.Pricing,
		gateway: deps.Gateway,
		history: deps.History,
		rebook:  deps.Rebook,
		reports: deps.Reports,
		users:   deps.Users,
		cfg:     cfg,
		logger:  deps.Logger,
		locks:   newUserLocks(),
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// AddedItem is returned to the caller after an item lands in the cart.
type AddedItem struct {
	ItemID         int64           `json:"item_id"`
	ItemName       string          `json:"item_name"`
	ExpirationDate time.Time       `json:"expiration_date"`
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency"`
	ComponentName  string          `json:"component_name"`
	Description    string          `json:"description"`
}

// authorize lets users act on their own cart and cashiers on anyone's.
func authorize(actor domain.Actor, ownerID int64) error {
	if actor.UserID == ownerID {
		return nil
	}
	return actor.Require(domain.CapabilityCashier)
}

// load purges an expired cart and returns what is left. Callers hold the user lock.
func (s *CartService) load(ctx context.Context, ownerID int64) (*domain.Cart, error) {
	purged, err := s.store.PurgeIfExpired(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if purged {
		logger.WithTrace(ctx, s.logger).Info("expired cart purged", zap.Int64("user_id", ownerID))
	}
	return s.store.Get(ctx, ownerID)
}

// rememberUser copies the actor's token profile into the user directory.
// Failures are logged; the report falls back to blank names.
func (s *CartService) rememberUser(ctx context.Context, actor domain.Actor) {
	if s.users == nil || !actor.Profile.HasName() {
		return
	}
	p := actor.Profile
	if err := s.users.UpsertUser(ctx, actor.UserID, p.FirstName, p.LastName, p.Email); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("failed to record user profile",
			zap.Int64("user_id", actor.UserID),
			zap.Error(err),
		)
	}
}

func (s *CartService) AddItem(ctx context.Context, actor domain.Actor, ownerID int64, component string, itemID int64) (AddedItem, error) {
	if err := authorize(actor, ownerID); err != nil {
		return AddedItem{}, err
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	cart, err := s.load(ctx, ownerID)
	if err != nil {
		return AddedItem{}, err
	}

	item, err := s.items.Resolve(ctx, component, itemID)
	if err != nil {
		return AddedItem{}, err
	}

	now := s.now()
	existing, exists := cart.Item(component, itemID)
	if !exists && cart.Len() >= s.cfg.MaxItems {
		return AddedItem{}, domain.NewValidationError("item_id", domain.MsgCartFull)
	}
	if currency, _ := cart.Currency(); !exists && currency != "" && item.Currency != currency {
		return AddedItem{}, domain.NewValidationError("item_id", domain.MsgCurrencyMismatch)
	}
	item.AddedAt = now
	if exists {
		item.AddedAt = existing.AddedAt
	}

	cart.Put(item)
	cart.ExpirationDate = now.Add(s.cfg.ExpirationTime)
	if actor.UserID == ownerID && actor.Profile.Country != "" {
		cart.Country = actor.Profile.Country
	}

	if err := s.store.Put(ctx, ownerID, cart); err != nil {
		return AddedItem{}, err
	}
	s.rememberUser(ctx, actor)

	logger.WithTrace(ctx, s.logger).Info("item added to cart",
		zap.Int64("user_id", ownerID),
		zap.Int64("acting_user_id", actor.UserID),
		zap.String("item", item.Key()),
	)

	return AddedItem{
		ItemID:         item.ItemID,
		ItemName:       item.ItemName,
		ExpirationDate: cart.ExpirationDate,
		Price:          item.Price,
		Currency:       item.Currency,
		ComponentName:  item.Component,
		Description:    item.Description,
	}, nil
}

// DeleteItem removes the item if present. Removing an absent item succeeds.
func (s *CartService) DeleteItem(ctx context.Context, actor domain.Actor, ownerID int64, component string, itemID int64) error {
	if err := authorize(actor, ownerID); err != nil {
		return err
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	cart, err := s.load(ctx, ownerID)
	if err != nil {
		return err
	}
	if !cart.Remove(component, itemID) {
		return nil
	}

	if cart.IsEmpty() {
		return s.store.Clear(ctx, ownerID)
	}
	return s.store.Put(ctx, ownerID, cart)
}

// AddDiscountToItem stores the discount as an absolute amount and echoes the input.
func (s *CartService) AddDiscountToItem(ctx context.Context, actor domain.Actor, ownerID int64, component string, itemID int64, spec domain.DiscountSpec) (domain.DiscountSpec, error) {
	if err := actor.Require(domain.CapabilityCashier); err != nil {
		return domain.DiscountSpec{}, err
	}
	if err := spec.Validate(); err != nil {
		return domain.DiscountSpec{}, err
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	cart, err := s.load(ctx, ownerID)
	if err != nil {
		return domain.DiscountSpec{}, err
	}

	item, ok := cart.Item(component, itemID)
	if !ok {
		return domain.DiscountSpec{}, &domain.ItemNotFoundError{Component: component, ItemID: itemID}
	}

	item.ApplyDiscount(spec)
	cart.Put(item)

	if err := s.store.Put(ctx, ownerID, cart); err != nil {
		return domain.DiscountSpec{}, err
	}

	logger.WithTrace(ctx, s.logger).Info("discount applied",
		zap.Int64("user_id", ownerID),
		zap.Int64("cashier_id", actor.UserID),
		zap.String("item", item.Key()),
		zap.Stringer("discount", item.Discount),
	)
	return spec, nil
}

// GetDiscount returns the values to pre-fill a discount form with.
func (s *CartService) GetDiscount(ctx context.Context, actor domain.Actor, ownerID int64, component string, itemID int64) (domain.DiscountSpec, error) {
	if err := actor.Require(domain.CapabilityCashier); err != nil {
		return domain.DiscountSpec{}, err
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	cart, err := s.load(ctx, ownerID)
	if err != nil {
		return domain.DiscountSpec{}, err
	}

	item, ok := cart.Item(component, itemID)
	if !ok {
		return domain.DiscountSpec{}, &domain.ItemNotFoundError{Component: component, ItemID: itemID}
	}
	return domain.DiscountOf(item), nil
}

func (s *CartService) GetCart(ctx context.Context, actor domain.Actor, ownerID int64) (pricing.Snapshot, error) {
	if err := authorize(actor, ownerID); err != nil {
		return pricing.Snapshot{}, err
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	cart, err := s.load(ctx, ownerID)
	if err != nil {
		return pricing.Snapshot{}, err
	}
	return s.pricing.Price(cart, actor.UserID), nil
}

type RebookRequest struct {
	Identifier string `json:"identifier"`
	UserID     int64  `json:"user_id"`
	Annotation string `json:"annotation"`
}

func (r RebookRequest) Validate() error {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(r.Identifier) == "" {
		verr.Add("identifier", domain.MsgMustNotBeEmpty)
	}
	if strings.TrimSpace(r.Annotation) == "" {
		verr.Add("annotation", domain.MsgMustNotBeEmpty)
	}
	return verr.OrNil()
}

// ManualRebook lets a cashier mark a payment as settled by hand. It only
// emits a PaymentRebooked event; the cart is left alone.
func (s *CartService) ManualRebook(ctx context.Context, actor domain.Actor, req RebookRequest) (RebookRequest, error) {
	if err := actor.Require(domain.CapabilityCashierManualRebook); err != nil {
		return RebookRequest{}, err
	}
	if err := req.Validate(); err != nil {
		return RebookRequest{}, err
	}

	event := domain.PaymentRebooked{
		CashierID:      actor.UserID,
		AffectedUserID: req.UserID,
		Identifier:     req.Identifier,
		Annotation:     req.Annotation,
		OccurredAt:     s.now(),
	}
	if err := s.rebook.OnManualRebook(ctx, event); err != nil {
		return RebookRequest{}, err
	}

	logger.WithTrace(ctx, s.logger).Info("payment rebooked",
		zap.String("identifier", req.Identifier),
		zap.Int64("user_id", req.UserID),
		zap.Int64("cashier_id", actor.UserID),
	)
	return req, nil
}
