package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry. OfferPriceCents is the price charged at order
// time; InStock is the single sellable flag the rest of the system consults.
type Product struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	PriceCents      int       `json:"price_cents"`
	OfferPriceCents int       `json:"offer_price_cents"`
	Sizes           []string  `json:"sizes"`
	InStock         bool      `json:"in_stock"`
	CreatedAt       time.Time `json:"created_at"`
}

// Sellable reports whether the product may currently be ordered.
func (p *Product) Sellable() bool {
	return p != nil && p.InStock
}

// HasSize reports whether size is one of the product's declared sizes.
func (p *Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}
