package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopprrapp/shopprr/internal/models"
)

// CartStore persists one cart document per user. All writes replace the
// document in a single-row statement; there is no partial mutation.
type CartStore struct {
	pool *pgxpool.Pool
}

func NewCartStore(pool *pgxpool.Pool) *CartStore {
	return &CartStore{pool: pool}
}

// Get returns the user's cart. A user with no stored row has an empty cart.
func (s *CartStore) Get(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	query := `SELECT data, updated_at FROM carts WHERE user_id = $1`

	var (
		dataJSON  []byte
		updatedAt pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, query, userID).Scan(&dataJSON, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &Cart{UserID: userID, Data: models.CartData{}}, nil
	}
	if err != nil {
		return nil, err
	}

	cart := &Cart{UserID: userID, UpdatedAt: updatedAt.Time}
	if err := json.Unmarshal(dataJSON, &cart.Data); err != nil {
		return nil, fmt.Errorf("failed to decode cart data: %w", err)
	}
	if cart.Data == nil {
		cart.Data = models.CartData{}
	}
	return cart, nil
}

// Put replaces the user's cart contents.
func (s *CartStore) Put(ctx context.Context, userID uuid.UUID, data CartData) error {
	if data == nil {
		data = models.CartData{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode cart data: %w", err)
	}

	query := `
		INSERT INTO carts (user_id, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`
	_, err = s.pool.Exec(ctx, query, userID, dataJSON)
	return err
}

// Clear empties the user's cart. Clearing a missing or already-empty cart is
// a no-op, so repeated invocations are safe.
func (s *CartStore) Clear(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE carts SET data = '{}'::jsonb, updated_at = NOW() WHERE user_id = $1`
	_, err := s.pool.Exec(ctx, query, userID)
	return err
}
