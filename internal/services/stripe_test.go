package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shopprrapp/shopprr/internal/db"
	"github.com/shopprrapp/shopprr/internal/models"
)

type countingEmailSender struct {
	mu    sync.Mutex
	sends int
}

func (c *countingEmailSender) SendOrderConfirmation(context.Context, *db.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends++
	return nil
}

func (c *countingEmailSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sends
}

func seedUnpaidCardOrder(t *testing.T, orders *fakeOrderStore, userID uuid.UUID, sessionID string) *db.Order {
	t.Helper()

	order := &db.Order{
		UserID:        userID,
		Items:         []models.OrderItem{{ProductID: uuid.New(), ProductName: "Shirt", Quantity: 1, Size: "M", UnitPriceCents: 2500}},
		Address:       testAddress(),
		SubtotalCents: 2500,
		TaxCents:      50,
		DeliveryCents: 1000,
		AmountCents:   3550,
		PaymentMethod: models.PaymentCard,
		PaymentState:  models.PaymentUnpaid,
		Status:        models.StatusPlaced,
	}
	if err := orders.Create(context.Background(), order); err != nil {
		t.Fatalf("seeding order: %v", err)
	}
	if sessionID != "" {
		if err := orders.SetCheckoutSession(context.Background(), order.ID, sessionID); err != nil {
			t.Fatalf("seeding session ID: %v", err)
		}
	}
	return order
}

func completedSessionPayload(sessionID string, metadata map[string]string) []byte {
	payload := fmt.Sprintf(`{"id":%q`, sessionID)
	if len(metadata) > 0 {
		payload += `,"metadata":{`
		first := true
		for key, value := range metadata {
			if !first {
				payload += ","
			}
			payload += fmt.Sprintf("%q:%q", key, value)
			first = false
		}
		payload += "}"
	}
	return []byte(payload + "}")
}

func paymentIntentPayload(intentID string, metadata map[string]string) []byte {
	return completedSessionPayload(intentID, metadata) // same shape: id plus metadata
}

func TestCheckoutSessionCompletedMarksPaidAndClearsCart(t *testing.T) {
	t.Parallel()

	orders := newFakeOrderStore()
	carts := newFakeCartStore()
	emails := &countingEmailSender{}
	userID := uuid.New()
	order := seedUnpaidCardOrder(t, orders, userID, "cs_paid_1")
	svc := NewStripeService(orders, carts, emails, discardLogger())

	err := svc.HandleCheckoutSessionCompleted(context.Background(), completedSessionPayload("cs_paid_1", map[string]string{
		"order_id": order.ID.String(),
		"user_id":  userID.String(),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	settled, err := orders.GetByID(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("order lookup failed: %v", err)
	}
	if settled.PaymentState != models.PaymentPaid {
		t.Fatalf("payment state = %s, want paid", settled.PaymentState)
	}
	if settled.PaidAt.IsZero() {
		t.Fatal("paid_at not set")
	}
	if got := carts.clearCount(userID); got != 1 {
		t.Fatalf("cart cleared %d times, want 1", got)
	}
	if emails.count() != 1 {
		t.Fatalf("confirmation emails sent = %d, want 1", emails.count())
	}
}

func TestCheckoutSessionCompletedReplayIsNoOp(t *testing.T) {
	t.Parallel()

	orders := newFakeOrderStore()
	carts := newFakeCartStore()
	emails := &countingEmailSender{}
	userID := uuid.New()
	order := seedUnpaidCardOrder(t, orders, userID, "cs_replay_1")
	svc := NewStripeService(orders, carts, emails, discardLogger())

	payload := completedSessionPayload("cs_replay_1", map[string]string{"order_id": order.ID.String(), "user_id": userID.String()})
	if err := svc.HandleCheckoutSessionCompleted(context.Background(), payload); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.HandleCheckoutSessionCompleted(context.Background(), payload); err != nil {
		t.Fatalf("replayed delivery must ack cleanly: %v", err)
	}

	if got := carts.clearCount(userID); got != 1 {
		t.Fatalf("cart cleared %d times across replay, want 1", got)
	}
	if emails.count() != 1 {
		t.Fatalf("confirmation emails sent = %d across replay, want 1", emails.count())
	}
}

func TestCheckoutSessionCompletedFallsBackToMetadataOrderID(t *testing.T) {
	t.Parallel()

	orders := newFakeOrderStore()
	carts := newFakeCartStore()
	userID := uuid.New()
	// Session ID never persisted, as when SetCheckoutSession lost a race with
	// a fast webhook delivery.
	order := seedUnpaidCardOrder(t, orders, userID, "")
	svc := NewStripeService(orders, carts, nil, discardLogger())

	err := svc.HandleCheckoutSessionCompleted(context.Background(), completedSessionPayload("cs_fast_1", map[string]string{
		"order_id": order.ID.String(),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	settled, _ := orders.GetByID(context.Background(), order.ID)
	if settled.PaymentState != models.PaymentPaid {
		t.Fatalf("payment state = %s, want paid via metadata fallback", settled.PaymentState)
	}
}

func TestCheckoutSessionCompletedUnknownOrderIgnored(t *testing.T) {
	t.Parallel()

	svc := NewStripeService(newFakeOrderStore(), newFakeCartStore(), nil, discardLogger())

	err := svc.HandleCheckoutSessionCompleted(context.Background(), completedSessionPayload("cs_ghost", map[string]string{
		"order_id": uuid.New().String(),
	}))
	if err != nil {
		t.Fatalf("unknown order must be acked, got: %v", err)
	}
}

func TestCheckoutSessionCompletedMalformedPayload(t *testing.T) {
	t.Parallel()

	svc := NewStripeService(newFakeOrderStore(), newFakeCartStore(), nil, discardLogger())

	if err := svc.HandleCheckoutSessionCompleted(context.Background(), []byte("{not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if err := svc.HandleCheckoutSessionCompleted(context.Background(), []byte(`{"id":""}`)); err == nil {
		t.Fatal("expected error for missing session ID")
	}
}

func TestPaymentIntentFailedDeletesUnpaidOrder(t *testing.T) {
	t.Parallel()

	orders := newFakeOrderStore()
	order := seedUnpaidCardOrder(t, orders, uuid.New(), "cs_fail_1")
	svc := NewStripeService(orders, newFakeCartStore(), nil, discardLogger())

	err := svc.HandlePaymentIntentFailed(context.Background(), paymentIntentPayload("pi_1", map[string]string{
		"order_id": order.ID.String(),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := orders.GetByID(context.Background(), order.ID); err == nil {
		t.Fatal("order still present after payment failure")
	}
}

func TestPaymentIntentFailedAfterSuccessIsDiscarded(t *testing.T) {
	t.Parallel()

	orders := newFakeOrderStore()
	carts := newFakeCartStore()
	userID := uuid.New()
	order := seedUnpaidCardOrder(t, orders, userID, "cs_race_1")
	svc := NewStripeService(orders, carts, nil, discardLogger())

	success := completedSessionPayload("cs_race_1", map[string]string{"order_id": order.ID.String(), "user_id": userID.String()})
	if err := svc.HandleCheckoutSessionCompleted(context.Background(), success); err != nil {
		t.Fatalf("success delivery: %v", err)
	}

	err := svc.HandlePaymentIntentFailed(context.Background(), paymentIntentPayload("pi_stale", map[string]string{
		"order_id": order.ID.String(),
	}))
	if err != nil {
		t.Fatalf("stale failure must be acked, got: %v", err)
	}

	settled, err := orders.GetByID(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("paid order was deleted by stale failure event: %v", err)
	}
	if settled.PaymentState != models.PaymentPaid {
		t.Fatalf("payment state = %s, want paid to stick", settled.PaymentState)
	}
}

func TestPaymentIntentFailedMissingMetadataIgnored(t *testing.T) {
	t.Parallel()

	svc := NewStripeService(newFakeOrderStore(), newFakeCartStore(), nil, discardLogger())

	if err := svc.HandlePaymentIntentFailed(context.Background(), paymentIntentPayload("pi_bare", nil)); err != nil {
		t.Fatalf("missing metadata must be acked, got: %v", err)
	}
	if err := svc.HandlePaymentIntentFailed(context.Background(), paymentIntentPayload("pi_junk", map[string]string{"order_id": "not-a-uuid"})); err != nil {
		t.Fatalf("malformed metadata must be acked, got: %v", err)
	}
}

func TestCheckoutSessionExpiredDeletesUnpaidOrder(t *testing.T) {
	t.Parallel()

	orders := newFakeOrderStore()
	order := seedUnpaidCardOrder(t, orders, uuid.New(), "cs_expired_1")
	svc := NewStripeService(orders, newFakeCartStore(), nil, discardLogger())

	err := svc.HandleCheckoutSessionExpired(context.Background(), completedSessionPayload("cs_expired_1", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := orders.GetByID(context.Background(), order.ID); err == nil {
		t.Fatal("order still present after checkout expiry")
	}
}
