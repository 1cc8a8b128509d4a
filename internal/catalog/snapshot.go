package catalog

// Package catalog resolves cart lines against the product catalog and
// freezes their prices for order creation.

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shopprrapp/shopprr/internal/db"
	"github.com/shopprrapp/shopprr/internal/models"
)

var (
	ErrItemUnavailable = errors.New("item is unavailable")
	ErrInvalidSize     = errors.New("invalid size")
)

// Lookup is the read-only catalog collaborator. A missing product is
// reported with db.ErrProductNotFound.
type Lookup interface {
	GetByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

// LineInput is one cart-derived line before pricing. Prices are never
// accepted from the client; they are always resolved here.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
	Size      string
}

// Snapshot is the frozen, catalog-resolved view of a set of lines at a
// single point in time.
type Snapshot struct {
	Items         []models.OrderItem
	SubtotalCents int
}

type Pricer struct {
	lookup Lookup
}

func NewPricer(lookup Lookup) *Pricer {
	return &Pricer{lookup: lookup}
}

// Snapshot resolves every line against the catalog and computes the subtotal
// from current offer prices. It performs no writes and must be re-run for
// every order creation.
func (p *Pricer) Snapshot(ctx context.Context, lines []LineInput) (*Snapshot, error) {
	items := make([]models.OrderItem, 0, len(lines))
	subtotal := 0

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("product %s: quantity must be positive", line.ProductID)
		}

		product, err := p.lookup.GetByID(ctx, line.ProductID)
		if errors.Is(err, db.ErrProductNotFound) {
			return nil, fmt.Errorf("%w: product %s", ErrItemUnavailable, line.ProductID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up product %s: %w", line.ProductID, err)
		}
		if !product.Sellable() {
			return nil, fmt.Errorf("%w: product %s is out of stock", ErrItemUnavailable, line.ProductID)
		}
		if !product.HasSize(line.Size) {
			return nil, fmt.Errorf("%w: product %s has no size %q", ErrInvalidSize, line.ProductID, line.Size)
		}

		items = append(items, models.OrderItem{
			ProductID:      product.ID,
			ProductName:    product.Name,
			Quantity:       line.Quantity,
			Size:           line.Size,
			UnitPriceCents: product.OfferPriceCents,
		})
		subtotal += product.OfferPriceCents * line.Quantity
	}

	return &Snapshot{Items: items, SubtotalCents: subtotal}, nil
}
