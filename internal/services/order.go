package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/shopprrapp/shopprr/internal/catalog"
	"github.com/shopprrapp/shopprr/internal/db"
	"github.com/shopprrapp/shopprr/internal/logging"
	"github.com/shopprrapp/shopprr/internal/models"
	"github.com/shopprrapp/shopprr/internal/stripe"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrPaymentSession = errors.New("payment session could not be created")
	ErrInvalidStatus  = errors.New("invalid fulfillment status")
)

type orderStore interface {
	Create(ctx context.Context, order *db.Order) error
	SetCheckoutSession(ctx context.Context, orderID uuid.UUID, sessionID string) error
	DeleteIfUnpaid(ctx context.Context, orderID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*db.Order, error)
	ListAll(ctx context.Context) ([]*db.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status models.FulfillmentStatus) error
}

type cartStore interface {
	Clear(ctx context.Context, userID uuid.UUID) error
}

type linePricer interface {
	Snapshot(ctx context.Context, lines []catalog.LineInput) (*catalog.Snapshot, error)
}

type checkoutStarter interface {
	CreateSession(ctx context.Context, order *models.Order) (*stripe.CheckoutSession, error)
}

// Pricing holds the fixed order-level charge constants. Tax applies to the
// item subtotal only.
type Pricing struct {
	TaxRate       float64
	DeliveryCents int
}

// OrderService builds orders from priced snapshots and drives the payment
// method specific creation flows.
type OrderService struct {
	orders          orderStore
	carts           cartStore
	pricer          linePricer
	checkout        checkoutStarter
	pricing         Pricing
	checkoutTimeout time.Duration
	logger          *slog.Logger
}

func NewOrderService(orders orderStore, carts cartStore, pricer linePricer, checkout checkoutStarter, pricing Pricing, checkoutTimeout time.Duration, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders:          orders,
		carts:           carts,
		pricer:          pricer,
		checkout:        checkout,
		pricing:         pricing,
		checkoutTimeout: checkoutTimeout,
		logger:          logger,
	}
}

func (s *OrderService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type PlaceOrderInput struct {
	UserID  uuid.UUID
	Lines   []catalog.LineInput
	Address models.Address
}

// CardOrderResult is returned for card orders: the persisted order plus the
// provider-hosted page the customer must be redirected to.
type CardOrderResult struct {
	Order       *db.Order
	RedirectURL string
	SessionID   string
}

// PlaceCOD creates a cash-on-delivery order. COD is trust-based and settles
// on delivery, so the order is persisted paid/placed and the cart cleared
// immediately.
func (s *OrderService) PlaceCOD(ctx context.Context, input PlaceOrderInput) (*db.Order, error) {
	logger := s.loggerFromContext(ctx)

	order, err := s.buildOrder(ctx, input, models.PaymentCOD)
	if err != nil {
		return nil, err
	}
	order.PaymentState = models.PaymentPaid

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.carts.Clear(ctx, input.UserID); err != nil {
		logger.Error("failed to clear cart after COD order", "error", err, "order_id", order.ID, "user_id", input.UserID)
	}

	logger.Info("COD order placed", "order_id", order.ID, "user_id", input.UserID, "amount_cents", order.AmountCents)
	return order, nil
}

// PlaceCard creates a card order and opens a provider checkout session for
// it. The order stays unpaid until the webhook reconciler settles it; if the
// session cannot be created the order is deleted again so the caller never
// observes a dangling unpaid order.
func (s *OrderService) PlaceCard(ctx context.Context, input PlaceOrderInput) (*CardOrderResult, error) {
	logger := s.loggerFromContext(ctx)

	order, err := s.buildOrder(ctx, input, models.PaymentCard)
	if err != nil {
		return nil, err
	}
	order.PaymentState = models.PaymentUnpaid

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	sessionCtx, cancel := context.WithTimeout(ctx, s.checkoutTimeout)
	defer cancel()

	session, err := s.checkout.CreateSession(sessionCtx, order)
	if err != nil {
		s.compensate(ctx, order.ID)
		logger.Warn("checkout session creation failed, order removed", "error", err, "order_id", order.ID)
		return nil, fmt.Errorf("%w: %v", ErrPaymentSession, err)
	}

	if err := s.orders.SetCheckoutSession(ctx, order.ID, session.ID); err != nil {
		s.compensate(ctx, order.ID)
		return nil, fmt.Errorf("failed to store checkout session on order: %w", err)
	}
	order.CheckoutSessionID = session.ID

	logger.Info("card order created, awaiting payment", "order_id", order.ID, "session_id", session.ID, "amount_cents", order.AmountCents)
	return &CardOrderResult{Order: order, RedirectURL: session.URL, SessionID: session.ID}, nil
}

// buildOrder resolves the snapshot and assembles the immutable order record.
// The amount is computed here exactly once and never recomputed.
func (s *OrderService) buildOrder(ctx context.Context, input PlaceOrderInput, method models.PaymentMethod) (*db.Order, error) {
	if len(input.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	snapshot, err := s.pricer.Snapshot(ctx, input.Lines)
	if err != nil {
		return nil, err
	}

	taxCents := int(math.Round(float64(snapshot.SubtotalCents) * s.pricing.TaxRate))

	return &db.Order{
		UserID:        input.UserID,
		Items:         snapshot.Items,
		Address:       input.Address,
		SubtotalCents: snapshot.SubtotalCents,
		TaxCents:      taxCents,
		DeliveryCents: s.pricing.DeliveryCents,
		AmountCents:   snapshot.SubtotalCents + taxCents + s.pricing.DeliveryCents,
		PaymentMethod: method,
		Status:        models.StatusPlaced,
	}, nil
}

// compensate removes a just-created order after a downstream failure. It runs
// on a detached context so a cancelled request cannot leave the order behind.
func (s *OrderService) compensate(ctx context.Context, orderID uuid.UUID) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if _, err := s.orders.DeleteIfUnpaid(cleanupCtx, orderID); err != nil {
		s.loggerFromContext(ctx).Error("failed to delete order during compensation", "error", err, "order_id", orderID)
	}
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]*db.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) ListAllOrders(ctx context.Context) ([]*db.Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus applies a staff-facing fulfillment status change after
// validating it against the enum.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status models.FulfillmentStatus) error {
	if !models.ValidFulfillmentStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return err
	}
	s.loggerFromContext(ctx).Info("order status updated", "order_id", orderID, "status", status)
	return nil
}
