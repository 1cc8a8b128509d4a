package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "cod"
	PaymentCard PaymentMethod = "card"
)

type PaymentState string

const (
	PaymentUnpaid PaymentState = "unpaid"
	PaymentPaid   PaymentState = "paid"
)

type FulfillmentStatus string

const (
	StatusPlaced     FulfillmentStatus = "placed"
	StatusProcessing FulfillmentStatus = "processing"
	StatusShipped    FulfillmentStatus = "shipped"
	StatusDelivered  FulfillmentStatus = "delivered"
	StatusCancelled  FulfillmentStatus = "cancelled"
)

// ValidFulfillmentStatus reports whether s is a member of the fulfillment enum.
func ValidFulfillmentStatus(s FulfillmentStatus) bool {
	switch s {
	case StatusPlaced, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// OrderItem is a single priced line of an order. UnitPriceCents is captured
// from the catalog at order creation and never re-read afterwards.
type OrderItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Quantity       int       `json:"quantity"`
	Size           string    `json:"size"`
	UnitPriceCents int       `json:"unit_price_cents"`
}

// Address is the shipping destination for an order.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zipcode   string `json:"zipcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

// Order is a persisted purchase. AmountCents is computed once at creation
// (subtotal + tax + delivery) and never recomputed afterwards.
type Order struct {
	ID                uuid.UUID         `json:"id"`
	UserID            uuid.UUID         `json:"user_id"`
	Items             []OrderItem       `json:"items"`
	Address           Address           `json:"address"`
	SubtotalCents     int               `json:"subtotal_cents"`
	TaxCents          int               `json:"tax_cents"`
	DeliveryCents     int               `json:"delivery_cents"`
	AmountCents       int               `json:"amount_cents"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
	PaymentState      PaymentState      `json:"payment_state"`
	Status            FulfillmentStatus `json:"status"`
	CheckoutSessionID string            `json:"checkout_session_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	PaidAt            time.Time         `json:"paid_at"`
}
