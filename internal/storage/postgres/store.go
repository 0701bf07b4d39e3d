package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/shop-api/internal/domain/apperr"
	"github.com/xenking/shop-api/internal/domain/order"
)

const (
	cartLinesForUpdateSQL = `SELECT ci.id, ci.product_id, ci.quantity, p.price, p.stock
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1 AND ci.id = ANY($2)
		ORDER BY ci.id
		FOR UPDATE OF ci`

	decrementStockSQL = `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`

	insertOrderSQL = `INSERT INTO orders (user_id, total_amount, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	deleteCartItemsSQL = `DELETE FROM cart_items WHERE user_id = $1 AND id = ANY($2)`
)

const rollbackTimeout = 5 * time.Second

var _ order.Store = (*Store)(nil)

// Store opens checkout transactions on a pool.
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewStore returns a Store. A positive timeout bounds every transaction.
func NewStore(pool *pgxpool.Pool, timeout time.Duration) *Store {
	return &Store{pool: pool, timeout: timeout}
}

// InTx runs fn in a READ COMMITTED transaction. Stock races are settled by
// the conditional decrement, and the cart rows are locked on read.
//
// Rollback uses a context detached from ctx, so a cancelled request still
// releases its locks promptly.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
		defer cancel()
		if err := tx.Rollback(rbCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			zctx.From(ctx).Warn("Rollback failed", zap.Error(err))
		}
	}()

	if err := fn(ctx, &checkoutTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	committed = true
	return nil
}

// checkoutTx implements order.Tx on an open transaction.
type checkoutTx struct {
	q dbtx
}

func (t *checkoutTx) CartLines(ctx context.Context, userID int64, ids []int64) ([]order.Line, error) {
	rows, err := t.q.Query(ctx, cartLinesForUpdateSQL, userID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query cart lines")
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Line, error) {
		var l order.Line
		err := row.Scan(&l.CartItemID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.Stock)
		return l, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan cart lines")
	}
	return lines, nil
}

func (t *checkoutTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	tag, err := t.q.Exec(ctx, decrementStockSQL, productID, quantity)
	if err != nil {
		return errors.Wrap(err, "update stock")
	}
	if tag.RowsAffected() == 0 {
		return apperr.InsufficientStock(productID)
	}
	return nil
}

func (t *checkoutTx) InsertOrder(ctx context.Context, o *order.Order) error {
	err := t.q.QueryRow(ctx, insertOrderSQL, o.UserID, o.TotalAmount, string(o.Status)).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert order row")
	}

	batch := &pgx.Batch{}
	for _, it := range o.Items {
		batch.Queue(insertOrderItemSQL, o.ID, it.ProductID, it.Quantity, it.Price)
	}
	br := t.q.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()

	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		if err := br.QueryRow().Scan(&o.Items[i].ID); err != nil {
			return errors.Wrapf(err, "insert order item for product %d", o.Items[i].ProductID)
		}
	}
	return nil
}

func (t *checkoutTx) DeleteCartItems(ctx context.Context, userID int64, ids []int64) error {
	if _, err := t.q.Exec(ctx, deleteCartItemsSQL, userID, ids); err != nil {
		return errors.Wrap(err, "delete cart items")
	}
	return nil
}
