package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/shop-api/internal/domain/cart"
)

const (
	upsertCartItemSQL = `INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	cartLineColumns = `ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at, p.name, p.price, p.stock`

	listCartLinesSQL = `SELECT ` + cartLineColumns + `
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.id`

	getCartLineSQL = `SELECT ` + cartLineColumns + `
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1 AND ci.id = $2`

	setCartQuantitySQL = `UPDATE cart_items SET quantity = $3 WHERE user_id = $1 AND id = $2`

	deleteCartItemSQL = `DELETE FROM cart_items WHERE user_id = $1 AND id = $2`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	db dbtx
}

// NewCartRepository returns a CartRepository that uses the given pool or
// transaction.
func NewCartRepository(db dbtx) *CartRepository {
	return &CartRepository{db: db}
}

// Add inserts a line or adds quantity to the user's existing line for the
// product in a single statement.
func (r *CartRepository) Add(ctx context.Context, userID, productID int64, quantity int) error {
	if _, err := r.db.Exec(ctx, upsertCartItemSQL, userID, productID, quantity); err != nil {
		switch pgCode(err) {
		case codeForeignKeyViolation:
			return cart.ErrProductUnavailable
		case codeNumericOutOfRange:
			return cart.ErrQuantityTooLarge
		}
		return errors.Wrap(err, "upsert cart item")
	}
	return nil
}

// List returns the user's cart lines ordered by ID.
func (r *CartRepository) List(ctx context.Context, userID int64) ([]cart.Line, error) {
	rows, err := r.db.Query(ctx, listCartLinesSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "query cart lines")
	}
	lines, err := pgx.CollectRows(rows, scanCartLine)
	if err != nil {
		return nil, errors.Wrap(err, "scan cart lines")
	}
	return lines, nil
}

// Get returns one of the user's cart lines.
func (r *CartRepository) Get(ctx context.Context, userID, id int64) (*cart.Line, error) {
	rows, err := r.db.Query(ctx, getCartLineSQL, userID, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get cart item %d", id)
	}
	l, err := pgx.CollectExactlyOneRow(rows, scanCartLine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get cart item %d", id)
	}
	return &l, nil
}

// SetQuantity replaces the quantity of one of the user's cart lines.
func (r *CartRepository) SetQuantity(ctx context.Context, userID, id int64, quantity int) error {
	tag, err := r.db.Exec(ctx, setCartQuantitySQL, userID, id, quantity)
	if err != nil {
		return errors.Wrapf(err, "update cart item %d", id)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

// Remove deletes one of the user's cart lines.
func (r *CartRepository) Remove(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, deleteCartItemSQL, userID, id)
	if err != nil {
		return errors.Wrapf(err, "delete cart item %d", id)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(
		&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt,
		&l.Name, &l.Price, &l.Stock,
	)
	return l, err
}
