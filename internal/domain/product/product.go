package product

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/shop-api/internal/domain/apperr"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = apperr.NotFound("product not found")
	// ErrInUse is returned when deleting a product that historical orders
	// still reference.
	ErrInUse = apperr.Conflict("product is referenced by existing orders", nil)
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID          int64
	Name        string
	Description *string
	Price       decimal.Decimal
	Stock       int
	CreatedAt   time.Time
}

// Update holds a partial product update. Nil fields are left unchanged.
// ClearDescription resets the description to null and wins over Description.
type Update struct {
	Name             *string
	Description      *string
	ClearDescription bool
	Price            *decimal.Decimal
	Stock            *int
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && !u.ClearDescription &&
		u.Price == nil && u.Stock == nil
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	// List returns at most limit products ordered by id, skipping the
	// first offset.
	List(ctx context.Context, offset, limit int) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	// Update applies u and returns ErrNotFound when no row matched.
	Update(ctx context.Context, id int64, u Update) error
	// Delete returns ErrNotFound when no row matched and ErrInUse when
	// order items reference the product.
	Delete(ctx context.Context, id int64) error
}
