package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shopprrapp/shopprr/internal/catalog"
	"github.com/shopprrapp/shopprr/internal/db"
	"github.com/shopprrapp/shopprr/internal/logging"
	"github.com/shopprrapp/shopprr/internal/models"
)

type cartDocStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*db.Cart, error)
	Put(ctx context.Context, userID uuid.UUID, data db.CartData) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// CartService mutates per-user cart documents. The cart is advisory state:
// prices are never stored here, only product and size references with
// quantities, so a stale cart can always be re-priced at order time.
type CartService struct {
	carts    cartDocStore
	products catalog.Lookup
	logger   *slog.Logger
}

func NewCartService(carts cartDocStore, products catalog.Lookup, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		logger:   logger,
	}
}

func (s *CartService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Get returns the user's cart, empty if none is stored.
func (s *CartService) Get(ctx context.Context, userID uuid.UUID) (*db.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return cart, nil
}

// AddItem increments the quantity of one product/size entry by one after
// checking the product is sellable and declares the size.
func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, size string) (*db.Cart, error) {
	if err := s.checkProduct(ctx, productID, size); err != nil {
		return nil, err
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	key := productID.String()
	if cart.Data[key] == nil {
		cart.Data[key] = map[string]int{}
	}
	cart.Data[key][size]++

	if err := s.carts.Put(ctx, userID, cart.Data); err != nil {
		return nil, fmt.Errorf("failed to store cart: %w", err)
	}

	s.loggerFromContext(ctx).Info("cart item added", "user_id", userID, "product_id", productID, "size", size)
	return cart, nil
}

// UpdateItem sets the quantity of one product/size entry. A quantity of zero
// removes the entry, and removing the last size drops the product key.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID uuid.UUID, size string, quantity int) (*db.Cart, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative")
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	key := productID.String()
	if quantity == 0 {
		if sizes, ok := cart.Data[key]; ok {
			delete(sizes, size)
			if len(sizes) == 0 {
				delete(cart.Data, key)
			}
		}
	} else {
		if err := s.checkProduct(ctx, productID, size); err != nil {
			return nil, err
		}
		if cart.Data[key] == nil {
			cart.Data[key] = map[string]int{}
		}
		cart.Data[key][size] = quantity
	}

	if err := s.carts.Put(ctx, userID, cart.Data); err != nil {
		return nil, fmt.Errorf("failed to store cart: %w", err)
	}
	return cart, nil
}

// Clear empties the user's cart.
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.carts.Clear(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Lines converts stored cart data into order lines for pricing.
func (s *CartService) Lines(ctx context.Context, userID uuid.UUID) ([]catalog.LineInput, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return cartLines(cart.Data)
}

func cartLines(data models.CartData) ([]catalog.LineInput, error) {
	var lines []catalog.LineInput
	for key, sizes := range data {
		productID, err := uuid.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("cart holds malformed product key %q", key)
		}
		for size, quantity := range sizes {
			if quantity <= 0 {
				continue
			}
			lines = append(lines, catalog.LineInput{ProductID: productID, Quantity: quantity, Size: size})
		}
	}
	return lines, nil
}

func (s *CartService) checkProduct(ctx context.Context, productID uuid.UUID, size string) error {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, db.ErrProductNotFound) {
			return fmt.Errorf("%w: product %s", catalog.ErrItemUnavailable, productID)
		}
		return fmt.Errorf("failed to look up product: %w", err)
	}
	if !product.Sellable() {
		return fmt.Errorf("%w: product %s", catalog.ErrItemUnavailable, productID)
	}
	if !product.HasSize(size) {
		return fmt.Errorf("%w: size %q", catalog.ErrInvalidSize, size)
	}
	return nil
}
