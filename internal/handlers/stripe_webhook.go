package handlers

import (
	"net/http"
	"time"

	"github.com/shopprrapp/shopprr/internal/cache"
	stripewebhook "github.com/shopprrapp/shopprr/internal/stripe"
)

// stripeWebhookIdempotencyTTL is how long webhook event IDs are kept for deduplication
const stripeWebhookIdempotencyTTL = 24 * time.Hour

// StripeWebhook receives provider events. Only structural failures (bad
// signature, unparseable envelope) are rejected with a client error; once an
// event verifies it is acknowledged with 200 even when processing fails, since
// the provider's retry policy would otherwise redeliver an event we cannot
// make progress on. The dedup mark is set only after successful processing.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	event, err := stripewebhook.ReadWebhookEvent(r, h.config.StripeWebhookSecret)
	if err != nil {
		logger.Error("failed to read Stripe webhook payload", "error", err)
		http.Error(w, "Invalid webhook", http.StatusBadRequest)
		return
	}

	if event == nil || event.ID == "" {
		logger.Error("missing Stripe event ID")
		http.Error(w, "Missing event ID", http.StatusBadRequest)
		return
	}

	cacheKey := cache.EventKey("stripe", event.ID)
	if _, err := h.cacheProvider.Get(ctx, cacheKey); err == nil {
		logger.Info("webhook already processed", "event_id", event.ID)
		w.WriteHeader(http.StatusOK)
		return
	}

	if processErr := h.stripeRouter.Handle(ctx, event); processErr != nil {
		logger.Error("failed to process Stripe webhook", "error", processErr, "type", event.Type, "event_id", event.ID)
	} else if err := h.cacheProvider.Set(ctx, cacheKey, "processed", stripeWebhookIdempotencyTTL); err != nil {
		logger.Error("failed to mark webhook as processed in cache", "error", err)
	}

	w.WriteHeader(http.StatusOK)
}
