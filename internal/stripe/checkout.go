// Package stripe wraps the Stripe API for checkout sessions and webhooks.
package stripe

import (
	"context"
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/shopprrapp/shopprr/internal/models"
)

// CheckoutClient creates provider-hosted checkout sessions for card orders.
type CheckoutClient struct {
	client      *stripeapi.Client
	currency    string
	frontendURL string
}

func NewCheckoutClient(secretKey, currency, frontendURL string) *CheckoutClient {
	return &CheckoutClient{
		client:      stripeapi.NewClient(secretKey),
		currency:    currency,
		frontendURL: frontendURL,
	}
}

// CheckoutSession is the subset of the provider session the rest of the
// system needs: where to send the customer and how to correlate the webhook.
type CheckoutSession struct {
	ID  string
	URL string
}

// CreateSession builds a payment-mode checkout session mirroring the order's
// line items plus a delivery-charge line. The order and user IDs ride along
// as metadata on both the session and its payment intent so webhook events
// can be correlated back without re-deriving state.
func (c *CheckoutClient) CreateSession(ctx context.Context, order *models.Order) (*CheckoutSession, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if order == nil || len(order.Items) == 0 {
		return nil, fmt.Errorf("order with line items is required")
	}

	lineItems := make([]*stripeapi.CheckoutSessionCreateLineItemParams, 0, len(order.Items)+1)
	for _, item := range order.Items {
		lineItems = append(lineItems, &stripeapi.CheckoutSessionCreateLineItemParams{
			PriceData: &stripeapi.CheckoutSessionCreateLineItemPriceDataParams{
				Currency: stripeapi.String(c.currency),
				ProductData: &stripeapi.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripeapi.String(fmt.Sprintf("%s (%s)", item.ProductName, item.Size)),
				},
				UnitAmount: stripeapi.Int64(int64(item.UnitPriceCents)),
			},
			Quantity: stripeapi.Int64(int64(item.Quantity)),
		})
	}
	if order.DeliveryCents > 0 {
		lineItems = append(lineItems, &stripeapi.CheckoutSessionCreateLineItemParams{
			PriceData: &stripeapi.CheckoutSessionCreateLineItemPriceDataParams{
				Currency: stripeapi.String(c.currency),
				ProductData: &stripeapi.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripeapi.String("Delivery Charges"),
				},
				UnitAmount: stripeapi.Int64(int64(order.DeliveryCents)),
			},
			Quantity: stripeapi.Int64(1),
		})
	}

	metadata := map[string]string{
		"order_id": order.ID.String(),
		"user_id":  order.UserID.String(),
	}

	params := &stripeapi.CheckoutSessionCreateParams{
		PaymentMethodTypes: stripeapi.StringSlice([]string{"card"}),
		Mode:               stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		LineItems:          lineItems,
		SuccessURL:         stripeapi.String(fmt.Sprintf("%s/my-orders?success=true&orderId=%s", c.frontendURL, order.ID)),
		CancelURL:          stripeapi.String(fmt.Sprintf("%s/cart?cancelled=true", c.frontendURL)),
		Metadata:           metadata,
		PaymentIntentData: &stripeapi.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: metadata,
		},
	}

	sess, err := c.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}
