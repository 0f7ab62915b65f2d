package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
	"github.com/fjod/go_cart/shopping-cart/internal/pricing"
	"github.com/fjod/go_cart/shopping-cart/internal/service"
)

// CartService is the application API the handlers drive.
type CartService interface {
	AddItem(ctx context.Context, actor domain.Actor, ownerID int64, component string, itemID int64) (service.AddedItem, error)
	DeleteItem(ctx context.Context, actor domain.Actor, ownerID int64, component string, itemID int64) error
	AddDiscountToItem(ctx context.Context, actor domain.Actor, ownerID int64, component string, itemID int64, spec domain.DiscountSpec) (domain.DiscountSpec, error)
	GetDiscount(ctx context.Context, actor domain.Actor, ownerID int64, component string, itemID int64) (domain.DiscountSpec, error)
	GetCart(ctx context.Context, actor domain.Actor, ownerID int64) (pricing.Snapshot, error)
	Checkout(ctx context.Context, actor domain.Actor, ownerID int64) (service.CheckoutResult, error)
	ManualRebook(ctx context.Context, actor domain.Actor, req service.RebookRequest) (service.RebookRequest, error)
	CashReport(ctx context.Context, actor domain.Actor, page, limit int) (service.CashReportPage, error)
	CashierSection(actor domain.Actor) (string, error)
}

// ReportArchiver stores a copy of every downloaded report.
type ReportArchiver interface {
	Archive(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type Handler struct {
	svc      CartService
	archiver ReportArchiver
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler builds the handler set. archiver may be nil.
func NewHandler(svc CartService, archiver ReportArchiver, timeout time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		svc:      svc,
		archiver: archiver,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// requestContext returns the acting user and a context bounded by the handler
// timeout. ok is false, and a 401 has been written, when no user is present.
func (h *Handler) requestContext(w http.ResponseWriter, r *http.Request) (context.Context, context.CancelFunc, domain.Actor, bool) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return nil, nil, domain.Actor{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	return ctx, cancel, actor, true
}

// ownerFromQuery returns the ?user_id= parameter, defaulting to the actor.
func ownerFromQuery(r *http.Request, actor domain.Actor) (int64, bool) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return actor.UserID, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}
