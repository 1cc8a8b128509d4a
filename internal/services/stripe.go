package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/shopprrapp/shopprr/internal/db"
	"github.com/shopprrapp/shopprr/internal/logging"
)

type reconcilerOrderStore interface {
	GetByID(ctx context.Context, orderID uuid.UUID) (*db.Order, error)
	GetByCheckoutSessionID(ctx context.Context, sessionID string) (*db.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) error
	DeleteIfUnpaid(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// StripeService reconciles asynchronous payment-provider events with order
// state. Every transition is idempotent: paid is absorbing, deletion of an
// already-settled or already-removed order is a no-op, and an unknown order
// is logged and ignored since replays and races make it an expected case.
type StripeService struct {
	orders      reconcilerOrderStore
	carts       cartStore
	emailSender OrderEmailSender
	logger      *slog.Logger
}

func NewStripeService(orders reconcilerOrderStore, carts cartStore, emailSender OrderEmailSender, logger *slog.Logger) *StripeService {
	if emailSender == nil {
		emailSender = noopOrderEmailSender{}
	}

	return &StripeService{
		orders:      orders,
		carts:       carts,
		emailSender: emailSender,
		logger:      logger,
	}
}

func (s *StripeService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// HandleCheckoutSessionCompleted settles a successful card payment: find the
// order by session ID (metadata order_id as fallback), flip it to paid only
// if it is still unpaid, then clear the owning user's cart.
func (s *StripeService) HandleCheckoutSessionCompleted(ctx context.Context, payload []byte) error {
	logger := s.loggerFromContext(ctx)

	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return fmt.Errorf("invalid event object: %w", err)
	}
	if session.ID == "" {
		return fmt.Errorf("missing session ID")
	}

	order, err := s.findOrder(ctx, session.ID, session.Metadata)
	if err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			logger.Info("order for completed session not found, ignoring", "session_id", session.ID)
			return nil
		}
		return fmt.Errorf("failed to look up order: %w", err)
	}

	if markErr := s.orders.MarkPaid(ctx, order.ID); markErr != nil {
		if errors.Is(markErr, db.ErrInvalidStateTransition) {
			logger.Info("order already settled, ignoring replayed success event", "order_id", order.ID, "session_id", session.ID)
			return nil
		}
		return fmt.Errorf("failed to mark order as paid: %w", markErr)
	}

	userID := order.UserID
	if metaUser, ok := session.Metadata["user_id"]; ok {
		if parsed, parseErr := uuid.Parse(metaUser); parseErr == nil {
			userID = parsed
		}
	}
	if err := s.carts.Clear(ctx, userID); err != nil {
		logger.Error("failed to clear cart after payment", "error", err, "order_id", order.ID, "user_id", userID)
	}

	if err := s.emailSender.SendOrderConfirmation(ctx, order); err != nil {
		logger.Error("failed to send order confirmation email", "error", err, "order_id", order.ID)
	}

	logger.Info("order marked paid", "order_id", order.ID, "session_id", session.ID)
	return nil
}

// HandleCheckoutSessionExpired removes an order whose checkout window closed
// without payment, matching the compensating delete of the creation flow.
func (s *StripeService) HandleCheckoutSessionExpired(ctx context.Context, payload []byte) error {
	logger := s.loggerFromContext(ctx)

	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return fmt.Errorf("invalid event object: %w", err)
	}
	if session.ID == "" {
		return fmt.Errorf("missing session ID")
	}

	order, err := s.findOrder(ctx, session.ID, session.Metadata)
	if err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			logger.Info("order for expired session not found, ignoring", "session_id", session.ID)
			return nil
		}
		return fmt.Errorf("failed to look up order: %w", err)
	}

	s.deleteUnpaid(ctx, order.ID, "session expired")
	return nil
}

// HandlePaymentIntentFailed removes the still-unpaid order named by the
// intent's metadata. A failure arriving after a success event matches no
// unpaid row and is discarded: last-applied-success wins.
func (s *StripeService) HandlePaymentIntentFailed(ctx context.Context, payload []byte) error {
	logger := s.loggerFromContext(ctx)

	var intent stripeapi.PaymentIntent
	if err := json.Unmarshal(payload, &intent); err != nil {
		return fmt.Errorf("invalid event object: %w", err)
	}
	if intent.ID == "" {
		return fmt.Errorf("missing payment intent ID")
	}

	orderIDStr, ok := intent.Metadata["order_id"]
	if !ok || orderIDStr == "" {
		logger.Info("payment intent missing order metadata, ignoring", "intent_id", intent.ID)
		return nil
	}
	orderID, err := uuid.Parse(orderIDStr)
	if err != nil {
		logger.Info("payment intent carries malformed order metadata, ignoring", "intent_id", intent.ID, "order_id", orderIDStr)
		return nil
	}

	s.deleteUnpaid(ctx, orderID, "payment failed")
	return nil
}

func (s *StripeService) findOrder(ctx context.Context, sessionID string, metadata map[string]string) (*db.Order, error) {
	order, err := s.orders.GetByCheckoutSessionID(ctx, sessionID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, db.ErrOrderNotFound) {
		return nil, err
	}

	orderIDStr, ok := metadata["order_id"]
	if !ok || orderIDStr == "" {
		return nil, db.ErrOrderNotFound
	}
	orderID, parseErr := uuid.Parse(orderIDStr)
	if parseErr != nil {
		return nil, db.ErrOrderNotFound
	}
	return s.orders.GetByID(ctx, orderID)
}

func (s *StripeService) deleteUnpaid(ctx context.Context, orderID uuid.UUID, reason string) {
	logger := s.loggerFromContext(ctx)

	deleted, err := s.orders.DeleteIfUnpaid(ctx, orderID)
	if err != nil {
		logger.Error("failed to delete unpaid order", "error", err, "order_id", orderID, "reason", reason)
		return
	}
	if deleted {
		logger.Info("unpaid order removed", "order_id", orderID, "reason", reason)
	} else {
		logger.Info("order already paid or gone, stale event discarded", "order_id", orderID, "reason", reason)
	}
}
