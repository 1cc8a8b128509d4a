package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shopprrapp/shopprr/internal/catalog"
	"github.com/shopprrapp/shopprr/internal/db"
	"github.com/shopprrapp/shopprr/internal/models"
)

type cartResponse struct {
	Data      models.CartData `json:"data"`
	UpdatedAt time.Time       `json:"updated_at,omitzero"`
}

func toCartResponse(cart *db.Cart) cartResponse {
	return cartResponse{Data: cart.Data, UpdatedAt: cart.UpdatedAt}
}

// GetCart returns the calling user's cart document.
func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		h.respondError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	cart, err := h.cartService.Get(r.Context(), identity.UserID)
	if err != nil {
		h.loggerFromContext(r.Context()).Error("failed to load cart", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "failed to load cart")
		return
	}
	h.respondJSON(w, r, http.StatusOK, toCartResponse(cart))
}

type addCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Size      string    `json:"size" validate:"required"`
}

// AddCartItem increments one product/size entry by one.
func (h *Handlers) AddCartItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		h.respondError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req addCartItemRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	cart, err := h.cartService.AddItem(r.Context(), identity.UserID, req.ProductID, req.Size)
	if err != nil {
		h.respondCartError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, toCartResponse(cart))
}

type updateCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Size      string    `json:"size" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=0"`
}

// UpdateCartItem sets one product/size entry's quantity; zero removes it.
func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		h.respondError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateCartItemRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	cart, err := h.cartService.UpdateItem(r.Context(), identity.UserID, req.ProductID, req.Size, req.Quantity)
	if err != nil {
		h.respondCartError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, toCartResponse(cart))
}

// ClearCart empties the calling user's cart.
func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		h.respondError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.cartService.Clear(r.Context(), identity.UserID); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to clear cart", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "failed to clear cart")
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]string{"message": "Cart cleared"})
}

func (h *Handlers) respondCartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrItemUnavailable):
		h.respondError(w, r, http.StatusConflict, "item unavailable")
	case errors.Is(err, catalog.ErrInvalidSize):
		h.respondError(w, r, http.StatusBadRequest, "invalid size")
	default:
		h.loggerFromContext(r.Context()).Error("cart operation failed", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "cart operation failed")
	}
}
