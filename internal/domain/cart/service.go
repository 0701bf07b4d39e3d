package cart

import (
	"context"
	"math"

	"github.com/go-faster/errors"

	"github.com/xenking/shop-api/internal/domain/apperr"
)

// maxQuantity is the largest quantity the INTEGER column holds.
const maxQuantity = math.MaxInt32

// Service manages a user's shopping cart. Stock is only advisory here; the
// authoritative check happens at checkout.
type Service struct {
	items    Repository
	products StockReader
}

// NewService creates a cart Service.
func NewService(items Repository, products StockReader) *Service {
	return &Service{items: items, products: products}
}

// Add puts quantity units of a product into the user's cart, merging with an
// existing line for the same product.
func (s *Service) Add(ctx context.Context, userID, productID int64, quantity int) error {
	if productID <= 0 {
		return apperr.Validation("product_id", "must be a positive integer")
	}
	if err := validateQuantity(quantity); err != nil {
		return err
	}

	stock, err := s.products.Stock(ctx, productID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ErrProductUnavailable
		}
		return errors.Wrap(err, "get product stock")
	}
	if stock < quantity {
		return ErrProductUnavailable
	}

	if err := s.items.Add(ctx, userID, productID, quantity); err != nil {
		return errors.Wrap(err, "add cart item")
	}
	return nil
}

// List returns the user's cart lines.
func (s *Service) List(ctx context.Context, userID int64) ([]Line, error) {
	lines, err := s.items.List(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}
	return lines, nil
}

// UpdateQuantity replaces the quantity of one of the user's cart lines.
func (s *Service) UpdateQuantity(ctx context.Context, userID, id int64, quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}

	line, err := s.items.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if line.Stock < quantity {
		return apperr.InsufficientStock(line.ProductID)
	}

	return s.items.SetQuantity(ctx, userID, id, quantity)
}

// Remove deletes one of the user's cart lines.
func (s *Service) Remove(ctx context.Context, userID, id int64) error {
	return s.items.Remove(ctx, userID, id)
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return apperr.Validation("quantity", "must be at least 1")
	}
	if quantity > maxQuantity {
		return ErrQuantityTooLarge
	}
	return nil
}
