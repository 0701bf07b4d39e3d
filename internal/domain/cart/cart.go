package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/shop-api/internal/domain/apperr"
)

var (
	// ErrNotFound is returned when a cart item does not exist or belongs to
	// another user.
	ErrNotFound = apperr.NotFound("cart item not found")
	// ErrProductUnavailable is returned when adding a product that does not
	// exist or cannot cover the requested quantity.
	ErrProductUnavailable = &apperr.Error{
		Kind:  apperr.KindValidation,
		Field: "product_id",
		Msg:   "product not found or insufficient stock",
	}
	// ErrQuantityTooLarge is returned when a line quantity would not fit the
	// store.
	ErrQuantityTooLarge = apperr.Validation("quantity", "is too large")
)

// Item is a user's intent to buy Quantity units of a product.
type Item struct {
	ID        int64
	UserID    int64
	ProductID int64
	Quantity  int
	CreatedAt time.Time
}

// Line is a cart item joined with the current product data, as shown in the
// cart listing.
type Line struct {
	Item
	Name  string
	Price decimal.Decimal
	Stock int
}

// Repository defines persistence operations for cart items. Every method is
// scoped to the owning user.
type Repository interface {
	// Add inserts a cart line or increases the quantity of the existing line
	// for the same product.
	Add(ctx context.Context, userID, productID int64, quantity int) error
	List(ctx context.Context, userID int64) ([]Line, error)
	// Get returns ErrNotFound unless the item exists and is owned by userID.
	Get(ctx context.Context, userID, id int64) (*Line, error)
	// SetQuantity returns ErrNotFound unless the item exists and is owned by
	// userID.
	SetQuantity(ctx context.Context, userID, id int64, quantity int) error
	// Remove returns ErrNotFound unless the item exists and is owned by userID.
	Remove(ctx context.Context, userID, id int64) error
}

// StockReader reports the current stock of a product.
type StockReader interface {
	// Stock returns apperr.ErrNotFound for unknown products.
	Stock(ctx context.Context, productID int64) (int, error)
}
