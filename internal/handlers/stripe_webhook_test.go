package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/shopprrapp/shopprr/internal/cache"
	"github.com/shopprrapp/shopprr/internal/config"
	"github.com/shopprrapp/shopprr/internal/db"
	"github.com/shopprrapp/shopprr/internal/models"
	"github.com/shopprrapp/shopprr/internal/services"
)

const testWebhookSecret = "whsec_test_secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type reconcilerFake struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*db.Order
	markPaids int
}

func newReconcilerFake() *reconcilerFake {
	return &reconcilerFake{orders: make(map[uuid.UUID]*db.Order)}
}

func (f *reconcilerFake) add(order *db.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.ID] = order
}

func (f *reconcilerFake) GetByID(_ context.Context, orderID uuid.UUID) (*db.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, db.ErrOrderNotFound
	}
	return order, nil
}

func (f *reconcilerFake) GetByCheckoutSessionID(_ context.Context, sessionID string) (*db.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.CheckoutSessionID == sessionID {
			return order, nil
		}
	}
	return nil, db.ErrOrderNotFound
}

func (f *reconcilerFake) MarkPaid(_ context.Context, orderID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok || order.PaymentState != models.PaymentUnpaid {
		return db.ErrInvalidStateTransition
	}
	order.PaymentState = models.PaymentPaid
	f.markPaids++
	return nil
}

func (f *reconcilerFake) DeleteIfUnpaid(_ context.Context, orderID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok || order.PaymentState != models.PaymentUnpaid {
		return false, nil
	}
	delete(f.orders, orderID)
	return true, nil
}

func (f *reconcilerFake) markPaidCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markPaids
}

type webhookCartFake struct{}

func (webhookCartFake) Clear(context.Context, uuid.UUID) error { return nil }

func newWebhookTestHandlers(t *testing.T, store *reconcilerFake) *Handlers {
	t.Helper()

	cacheProvider, err := cache.NewProvider(cache.Config{Provider: "memory"})
	if err != nil {
		t.Fatalf("cache provider: %v", err)
	}
	t.Cleanup(func() { _ = cacheProvider.Close() })

	logger := discardLogger()
	stripeService := services.NewStripeService(store, webhookCartFake{}, nil, logger)

	return &Handlers{
		config:        &config.Config{StripeWebhookSecret: testWebhookSecret},
		cacheProvider: cacheProvider,
		stripeRouter:  NewStripeEventRouter(stripeService, logger),
		logger:        logger,
	}
}

func signedWebhookRequest(t *testing.T, payload []byte, secret string) *http.Request {
	t.Helper()

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func completedEventPayload(eventID, sessionID string, orderID uuid.UUID) []byte {
	return fmt.Appendf(nil,
		`{"id":%q,"object":"event","api_version":"2026-01-28.clover","type":"checkout.session.completed","data":{"object":{"id":%q,"object":"checkout.session","metadata":{"order_id":%q}}}}`,
		eventID, sessionID, orderID,
	)
}

func TestStripeWebhookRejectsUnsignedRequest(t *testing.T) {
	t.Parallel()

	store := newReconcilerFake()
	h := newWebhookTestHandlers(t, store)

	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewBufferString(`{"id":"evt_1"}`))
	rec := httptest.NewRecorder()
	h.StripeWebhook(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if store.markPaidCount() != 0 {
		t.Fatal("unsigned request reached the reconciler")
	}
}

func TestStripeWebhookRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	store := newReconcilerFake()
	h := newWebhookTestHandlers(t, store)

	payload := completedEventPayload("evt_wrong", "cs_1", uuid.New())
	rec := httptest.NewRecorder()
	h.StripeWebhook(rec, signedWebhookRequest(t, payload, "whsec_other_secret"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if store.markPaidCount() != 0 {
		t.Fatal("badly signed request reached the reconciler")
	}
}

func TestStripeWebhookProcessesCompletedSession(t *testing.T) {
	t.Parallel()

	store := newReconcilerFake()
	order := &db.Order{ID: uuid.New(), UserID: uuid.New(), PaymentMethod: models.PaymentCard, PaymentState: models.PaymentUnpaid, CheckoutSessionID: "cs_settle"}
	store.add(order)
	h := newWebhookTestHandlers(t, store)

	payload := completedEventPayload("evt_settle", "cs_settle", order.ID)
	rec := httptest.NewRecorder()
	h.StripeWebhook(rec, signedWebhookRequest(t, payload, testWebhookSecret))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.markPaidCount() != 1 {
		t.Fatalf("mark paid count = %d, want 1", store.markPaidCount())
	}
}

func TestStripeWebhookDeduplicatesRedelivery(t *testing.T) {
	t.Parallel()

	store := newReconcilerFake()
	order := &db.Order{ID: uuid.New(), UserID: uuid.New(), PaymentMethod: models.PaymentCard, PaymentState: models.PaymentUnpaid, CheckoutSessionID: "cs_dup"}
	store.add(order)
	h := newWebhookTestHandlers(t, store)

	payload := completedEventPayload("evt_dup", "cs_dup", order.ID)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.StripeWebhook(rec, signedWebhookRequest(t, payload, testWebhookSecret))
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: status = %d, want 200", i, rec.Code)
		}
	}

	if store.markPaidCount() != 1 {
		t.Fatalf("mark paid count = %d across redelivery, want 1", store.markPaidCount())
	}
}

func TestStripeWebhookAcksProcessingFailure(t *testing.T) {
	t.Parallel()

	store := newReconcilerFake()
	h := newWebhookTestHandlers(t, store)

	// Verified envelope whose inner object is missing its ID: the reconciler
	// errors, but the provider must still see an acknowledgement.
	payload := []byte(`{"id":"evt_bad_obj","object":"event","api_version":"2026-01-28.clover","type":"checkout.session.completed","data":{"object":{"id":"","object":"checkout.session"}}}`)
	rec := httptest.NewRecorder()
	h.StripeWebhook(rec, signedWebhookRequest(t, payload, testWebhookSecret))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestStripeWebhookIgnoresUnhandledEventType(t *testing.T) {
	t.Parallel()

	store := newReconcilerFake()
	h := newWebhookTestHandlers(t, store)

	payload := []byte(`{"id":"evt_other","object":"event","api_version":"2026-01-28.clover","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)
	rec := httptest.NewRecorder()
	h.StripeWebhook(rec, signedWebhookRequest(t, payload, testWebhookSecret))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.markPaidCount() != 0 {
		t.Fatal("unhandled event type mutated order state")
	}
}
