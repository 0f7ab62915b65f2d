package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter wires the handlers under /api/v1. Everything except /health
// requires a bearer token signed with secret.
func NewRouter(h *Handler, secret string, timeout time.Duration, checks map[string]Pinger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", healthHandler(checks))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(secret))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/checkout", h.Checkout)
			r.Post("/items", h.AddItem)
			r.Route("/items/{component}/{item_id}", func(r chi.Router) {
				r.Delete("/", h.DeleteItem)
				r.Get("/discount", h.GetDiscount)
				r.Post("/discount", h.AddDiscount)
			})
		})

		r.Route("/cashier", func(r chi.Router) {
			r.Post("/rebook", h.ManualRebook)
			r.Get("/report", h.CashReport)
			r.Get("/section", h.CashierSection)
		})
	})

	return r
}

func healthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, check := range checks {
			if err := check.Ping(r.Context()); err != nil {
				status[name] = err.Error()
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		respondJSON(w, code, status)
	}
}

// RequestLogger logs one line per request with zap.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
