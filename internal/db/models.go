package db

import "github.com/shopprrapp/shopprr/internal/models"

type Order = models.Order
type OrderItem = models.OrderItem
type Address = models.Address
type Cart = models.Cart
type CartData = models.CartData
type Product = models.Product

const (
	PaymentUnpaid = models.PaymentUnpaid
	PaymentPaid   = models.PaymentPaid

	StatusPlaced     = models.StatusPlaced
	StatusProcessing = models.StatusProcessing
	StatusShipped    = models.StatusShipped
	StatusDelivered  = models.StatusDelivered
	StatusCancelled  = models.StatusCancelled
)
