package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

type AddItemRequestDTO struct {
	Component string `json:"component"`
	ItemID    int64  `json:"item_id"`
	UserID    int64  `json:"user_id,omitempty"`
}

type DiscountRequestDTO struct {
	UserID           int64           `json:"user_id"`
	DiscountPercent  decimal.Decimal `json:"discount_percent"`
	DiscountAbsolute decimal.Decimal `json:"discount_absolute"`
}

// GET /api/v1/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	defer cancel()

	ownerID, ok := ownerFromQuery(r, actor)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a positive integer")
		return
	}

	snapshot, err := h.svc.GetCart(ctx, actor, ownerID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// POST /api/v1/cart/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	verr := &domain.ValidationError{}
	if req.Component == "" {
		verr.Add("component", domain.MsgMustNotBeEmpty)
	}
	if req.ItemID <= 0 {
		verr.Add("item_id", "must be a positive integer")
	}
	if err := verr.OrNil(); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	ownerID := req.UserID
	if ownerID == 0 {
		ownerID = actor.UserID
	}

	added, err := h.svc.AddItem(ctx, actor, ownerID, req.Component, req.ItemID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, added)
}

// DELETE /api/v1/cart/items/{component}/{item_id}
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	defer cancel()

	component, itemID, ok := itemFromPath(w, r)
	if !ok {
		return
	}
	ownerID, ok := ownerFromQuery(r, actor)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a positive integer")
		return
	}

	if err := h.svc.DeleteItem(ctx, actor, ownerID, component, itemID); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/cart/items/{component}/{item_id}/discount?user_id=
func (h *Handler) GetDiscount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	defer cancel()

	component, itemID, ok := itemFromPath(w, r)
	if !ok {
		return
	}
	ownerID, ok := ownerFromQuery(r, actor)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a positive integer")
		return
	}

	spec, err := h.svc.GetDiscount(ctx, actor, ownerID, component, itemID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, spec)
}

// POST /api/v1/cart/items/{component}/{item_id}/discount
func (h *Handler) AddDiscount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	defer cancel()

	component, itemID, ok := itemFromPath(w, r)
	if !ok {
		return
	}

	var req DiscountRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.UserID <= 0 {
		handleServiceError(w, h.logger, domain.NewValidationError("user_id", domain.MsgMustNotBeEmpty))
		return
	}

	spec := domain.DiscountSpec{Percent: req.DiscountPercent, Absolute: req.DiscountAbsolute}
	echo, err := h.svc.AddDiscountToItem(ctx, actor, req.UserID, component, itemID, spec)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, DiscountRequestDTO{
		UserID:           req.UserID,
		DiscountPercent:  echo.Percent,
		DiscountAbsolute: echo.Absolute,
	})
}

// POST /api/v1/cart/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	defer cancel()

	ownerID, ok := ownerFromQuery(r, actor)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a positive integer")
		return
	}

	result, err := h.svc.Checkout(ctx, actor, ownerID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func itemFromPath(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	component := chi.URLParam(r, "component")
	itemID, err := strconv.ParseInt(chi.URLParam(r, "item_id"), 10, 64)
	if err != nil || itemID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item_id must be a positive integer")
		return "", 0, false
	}
	return component, itemID, true
}
