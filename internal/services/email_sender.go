package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopprrapp/shopprr/internal/db"
	"github.com/shopprrapp/shopprr/internal/email"
)

// OrderEmailSender delivers the order confirmation once payment is settled.
// Failures are logged by callers, never escalated: email is a best-effort
// collaborator.
type OrderEmailSender interface {
	SendOrderConfirmation(ctx context.Context, order *db.Order) error
}

type noopOrderEmailSender struct{}

func (noopOrderEmailSender) SendOrderConfirmation(context.Context, *db.Order) error {
	return nil
}

// NewOrderEmailSender wraps an email provider. A nil provider yields a noop
// sender so callers never need to branch.
func NewOrderEmailSender(provider email.Provider) OrderEmailSender {
	if provider == nil {
		return noopOrderEmailSender{}
	}
	return &orderEmailSender{provider: provider}
}

type orderEmailSender struct {
	provider email.Provider
}

func (s *orderEmailSender) SendOrderConfirmation(ctx context.Context, order *db.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	to := strings.TrimSpace(order.Address.Email)
	if to == "" {
		return nil
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\nThanks for your order! Payment has been received.\n\n", order.Address.FirstName)
	for _, item := range order.Items {
		fmt.Fprintf(&body, "  %dx %s (%s): %s\n", item.Quantity, item.ProductName, item.Size, formatCents(item.UnitPriceCents*item.Quantity))
	}
	fmt.Fprintf(&body, "\nDelivery: %s\nTotal: %s\n", formatCents(order.DeliveryCents), formatCents(order.AmountCents))

	return s.provider.SendEmail(ctx, &email.Email{
		To:      to,
		Subject: fmt.Sprintf("Order confirmation %s", order.ID),
		Text:    body.String(),
	})
}

func formatCents(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
