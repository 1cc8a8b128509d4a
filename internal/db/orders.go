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

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidStateTransition is returned when a conditional update matched
	// no row because the order was not in the expected state. Webhook
	// reconciliation treats it as an ignorable replay, not a failure.
	ErrInvalidStateTransition = errors.New("invalid order state transition")
)

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

func (s *OrderStore) Create(ctx context.Context, order *Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}
	addressJSON, err := json.Marshal(order.Address)
	if err != nil {
		return fmt.Errorf("failed to encode shipping address: %w", err)
	}

	query := `
		INSERT INTO orders (
			user_id, items, address, subtotal_cents, tax_cents, delivery_cents,
			amount_cents, payment_method, payment_state, status, paid_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`
	paidAt := pgtype.Timestamptz{}
	if order.PaymentState == PaymentPaid {
		paidAt = pgtype.Timestamptz{Time: order.CreatedAt, Valid: true}
	}

	row := s.pool.QueryRow(ctx, query,
		order.UserID,
		itemsJSON,
		addressJSON,
		order.SubtotalCents,
		order.TaxCents,
		order.DeliveryCents,
		order.AmountCents,
		string(order.PaymentMethod),
		string(order.PaymentState),
		string(order.Status),
		paidAt,
	)

	var createdAt, updatedAt pgtype.Timestamptz
	if err := row.Scan(&order.ID, &createdAt, &updatedAt); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	order.CreatedAt = createdAt.Time
	order.UpdatedAt = updatedAt.Time
	return nil
}

const orderColumns = `
	id, user_id, items, address, subtotal_cents, tax_cents, delivery_cents,
	amount_cents, payment_method, payment_state, status, checkout_session_id,
	created_at, updated_at, paid_at
`

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return s.scanOrder(s.pool.QueryRow(ctx, query, orderID))
}

func (s *OrderStore) GetByCheckoutSessionID(ctx context.Context, sessionID string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE checkout_session_id = $1`
	return s.scanOrder(s.pool.QueryRow(ctx, query, sessionID))
}

// ListByUser returns the user's actionable orders, newest first. Unpaid card
// orders are transient (they are either paid or deleted) and are not listed.
func (s *OrderStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND (payment_method = 'cod' OR payment_state = 'paid')
		ORDER BY created_at DESC
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectOrders(rows)
}

func (s *OrderStore) ListAll(ctx context.Context) ([]*Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE payment_method = 'cod' OR payment_state = 'paid'
		ORDER BY created_at DESC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectOrders(rows)
}

func (s *OrderStore) SetCheckoutSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	query := `UPDATE orders SET checkout_session_id = $1, updated_at = NOW() WHERE id = $2`
	cmdTag, err := s.pool.Exec(ctx, query, sessionID, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// MarkPaid flips the order to paid only if it is still unpaid. Paid is
// absorbing: a replayed success event matches no row and gets
// ErrInvalidStateTransition, which callers discard.
func (s *OrderStore) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	query := `
		UPDATE orders
		SET payment_state = 'paid', status = 'placed', paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND payment_state = 'unpaid'
	`
	cmdTag, err := s.pool.Exec(ctx, query, orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expected unpaid", ErrInvalidStateTransition)
	}
	return nil
}

// DeleteIfUnpaid removes an order that never reached paid, as if it had never
// existed. The payment_state guard keeps a stale failure event from deleting
// an order a success event already settled.
func (s *OrderStore) DeleteIfUnpaid(ctx context.Context, orderID uuid.UUID) (bool, error) {
	query := `DELETE FROM orders WHERE id = $1 AND payment_state = 'unpaid'`
	cmdTag, err := s.pool.Exec(ctx, query, orderID)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (s *OrderStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, status models.FulfillmentStatus) error {
	query := `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`
	cmdTag, err := s.pool.Exec(ctx, query, string(status), orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *OrderStore) scanOrder(row rowScanner) (*Order, error) {
	var (
		order       Order
		itemsJSON   []byte
		addressJSON []byte
		method      string
		state       string
		status      string
		sessionID   pgtype.Text
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
		paidAt      pgtype.Timestamptz
	)

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&itemsJSON,
		&addressJSON,
		&order.SubtotalCents,
		&order.TaxCents,
		&order.DeliveryCents,
		&order.AmountCents,
		&method,
		&state,
		&status,
		&sessionID,
		&createdAt,
		&updatedAt,
		&paidAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &order.Address); err != nil {
		return nil, fmt.Errorf("failed to decode shipping address: %w", err)
	}

	order.PaymentMethod = models.PaymentMethod(method)
	order.PaymentState = models.PaymentState(state)
	order.Status = models.FulfillmentStatus(status)
	if sessionID.Valid {
		order.CheckoutSessionID = sessionID.String
	}
	order.CreatedAt = createdAt.Time
	order.UpdatedAt = updatedAt.Time
	if paidAt.Valid {
		order.PaidAt = paidAt.Time
	}

	return &order, nil
}

func (s *OrderStore) collectOrders(rows pgx.Rows) ([]*Order, error) {
	var orders []*Order
	for rows.Next() {
		order, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
