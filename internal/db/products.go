package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProductNotFound = errors.New("product not found")

// ProductStore is the read-only catalog lookup used for pricing and cart
// validation. Catalog management is owned elsewhere.
type ProductStore struct {
	pool *pgxpool.Pool
}

func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

func (s *ProductStore) GetByID(ctx context.Context, productID uuid.UUID) (*Product, error) {
	query := `
		SELECT id, name, description, price_cents, offer_price_cents, sizes, in_stock, created_at
		FROM products
		WHERE id = $1
	`

	var (
		product   Product
		createdAt pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, query, productID).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.PriceCents,
		&product.OfferPriceCents,
		&product.Sizes,
		&product.InStock,
		&createdAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	product.CreatedAt = createdAt.Time

	return &product, nil
}
