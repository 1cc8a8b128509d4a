package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/shopprrapp/shopprr/internal/catalog"
	"github.com/shopprrapp/shopprr/internal/db"
	"github.com/shopprrapp/shopprr/internal/models"
	"github.com/shopprrapp/shopprr/internal/services"
)

type orderLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
	Size      string    `json:"size" validate:"required"`
}

type addressRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Street    string `json:"street" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	Zipcode   string `json:"zipcode" validate:"required"`
	Country   string `json:"country" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
}

type placeOrderRequest struct {
	Items   []orderLineRequest `json:"items" validate:"required,min=1,dive"`
	Address addressRequest     `json:"address" validate:"required"`
}

func (req *placeOrderRequest) toInput(userID uuid.UUID) services.PlaceOrderInput {
	lines := make([]catalog.LineInput, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, catalog.LineInput{ProductID: item.ProductID, Quantity: item.Quantity, Size: item.Size})
	}
	return services.PlaceOrderInput{
		UserID: userID,
		Lines:  lines,
		Address: models.Address{
			FirstName: req.Address.FirstName,
			LastName:  req.Address.LastName,
			Email:     req.Address.Email,
			Street:    req.Address.Street,
			City:      req.Address.City,
			State:     req.Address.State,
			Zipcode:   req.Address.Zipcode,
			Country:   req.Address.Country,
			Phone:     req.Address.Phone,
		},
	}
}

type orderResponse struct {
	ID            uuid.UUID          `json:"id"`
	Items         []models.OrderItem `json:"items"`
	SubtotalCents int                `json:"subtotal_cents"`
	TaxCents      int                `json:"tax_cents"`
	DeliveryCents int                `json:"delivery_cents"`
	AmountCents   int                `json:"amount_cents"`
	PaymentMethod string             `json:"payment_method"`
	PaymentState  string             `json:"payment_state"`
	Status        string             `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
}

func toOrderResponse(order *db.Order) orderResponse {
	return orderResponse{
		ID:            order.ID,
		Items:         order.Items,
		SubtotalCents: order.SubtotalCents,
		TaxCents:      order.TaxCents,
		DeliveryCents: order.DeliveryCents,
		AmountCents:   order.AmountCents,
		PaymentMethod: string(order.PaymentMethod),
		PaymentState:  string(order.PaymentState),
		Status:        string(order.Status),
		CreatedAt:     order.CreatedAt,
	}
}

// PlaceCODOrder creates a cash-on-delivery order from the request's items.
func (h *Handlers) PlaceCODOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		h.respondError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req placeOrderRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.PlaceCOD(r.Context(), req.toInput(identity.UserID))
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusCreated, map[string]any{
		"order":   toOrderResponse(order),
		"message": "Order placed",
	})
}

// PlaceCardOrder creates an unpaid card order and returns the provider
// checkout redirect.
func (h *Handlers) PlaceCardOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		h.respondError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req placeOrderRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.orderService.PlaceCard(r.Context(), req.toInput(identity.UserID))
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}

	h.respondJSON(w, r, http.StatusCreated, map[string]any{
		"order":        toOrderResponse(result.Order),
		"session_id":   result.SessionID,
		"redirect_url": result.RedirectURL,
	})
}

// ListMyOrders returns the calling user's visible orders.
func (h *Handlers) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		h.respondError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	orders, err := h.orderService.ListUserOrders(r.Context(), identity.UserID)
	if err != nil {
		h.loggerFromContext(r.Context()).Error("failed to list user orders", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "failed to list orders")
		return
	}

	responses := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		responses = append(responses, toOrderResponse(order))
	}
	h.respondJSON(w, r, http.StatusOK, map[string]any{"orders": responses})
}

// ListAllOrders is the staff-facing listing across all users.
func (h *Handlers) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListAllOrders(r.Context())
	if err != nil {
		h.loggerFromContext(r.Context()).Error("failed to list orders", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "failed to list orders")
		return
	}

	responses := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		responses = append(responses, toOrderResponse(order))
	}
	h.respondJSON(w, r, http.StatusOK, map[string]any{"orders": responses})
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateOrderStatus applies a staff fulfillment status change.
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(mux.Vars(r)["orderID"])
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updateStatusRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	err = h.orderService.UpdateStatus(r.Context(), orderID, models.FulfillmentStatus(req.Status))
	switch {
	case errors.Is(err, services.ErrInvalidStatus):
		h.respondError(w, r, http.StatusBadRequest, "invalid fulfillment status")
	case errors.Is(err, db.ErrOrderNotFound):
		h.respondError(w, r, http.StatusNotFound, "order not found")
	case err != nil:
		h.loggerFromContext(r.Context()).Error("failed to update order status", "error", err, "order_id", orderID)
		h.respondError(w, r, http.StatusInternalServerError, "failed to update order status")
	default:
		h.respondJSON(w, r, http.StatusOK, map[string]string{"message": "Status updated"})
	}
}

func (h *Handlers) respondOrderError(w http.ResponseWriter, r *http.Request, err error) {
	logger := h.loggerFromContext(r.Context())

	switch {
	case errors.Is(err, services.ErrEmptyCart):
		h.respondError(w, r, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, catalog.ErrItemUnavailable):
		h.respondError(w, r, http.StatusConflict, "item unavailable")
	case errors.Is(err, catalog.ErrInvalidSize):
		h.respondError(w, r, http.StatusBadRequest, "invalid size")
	case errors.Is(err, services.ErrPaymentSession):
		logger.Error("payment session creation failed", "error", err)
		h.respondError(w, r, http.StatusBadGateway, "payment session could not be created")
	default:
		logger.Error("failed to place order", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "failed to place order")
	}
}
