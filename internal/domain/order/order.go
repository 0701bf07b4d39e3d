package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/shop-api/internal/domain/apperr"
)

// ErrNotFound is returned when an order does not exist or belongs to another
// user.
var ErrNotFound = apperr.NotFound("order not found")

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a status supplied by a client. Orders start as
// pending, so pending is not an accepted target.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	default:
		return "", apperr.Validation("status", "must be one of paid, shipped, delivered, cancelled")
	}
}

// Order is a persisted checkout.
type Order struct {
	ID          int64
	UserID      int64
	TotalAmount decimal.Decimal
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Items       []Item
}

// Item is one order line. Price is the unit price captured at checkout and
// never changes afterwards.
type Item struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// Line is a cart item resolved inside a checkout, joined with the product's
// current price and stock.
type Line struct {
	CartItemID int64
	ProductID  int64
	Quantity   int
	UnitPrice  decimal.Decimal
	Stock      int
}

// Tx is the set of operations a checkout performs inside one transaction.
// Implementations are only valid within the Store.InTx callback that
// produced them.
type Tx interface {
	// CartLines returns the cart items among ids that belong to userID,
	// ordered by cart item id. Unknown and foreign ids are dropped.
	CartLines(ctx context.Context, userID int64, ids []int64) ([]Line, error)
	// DecrementStock subtracts quantity from the product's stock. It returns
	// an InsufficientStock error and changes nothing when the stock is lower
	// than quantity.
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	// InsertOrder writes o and its items, setting the generated ids.
	InsertOrder(ctx context.Context, o *Order) error
	// DeleteCartItems removes the user's cart items among ids. Ids that are
	// already gone are ignored.
	DeleteCartItems(ctx context.Context, userID int64, ids []int64) error
}

// Store opens checkout transactions.
type Store interface {
	// InTx runs fn in a transaction. It commits when fn returns nil and rolls
	// back otherwise, returning fn's error unchanged.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Repository defines the non-transactional order queries.
type Repository interface {
	// ListByUser returns the user's orders with their items, newest first.
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	// GetByUser returns ErrNotFound unless the order belongs to userID.
	GetByUser(ctx context.Context, userID, id int64) (*Order, error)
	// UpdateStatus returns ErrNotFound unless the order belongs to userID.
	UpdateStatus(ctx context.Context, userID, id int64, status Status) error
}
