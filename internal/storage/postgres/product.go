package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/shop-api/internal/domain/cart"
	"github.com/xenking/shop-api/internal/domain/product"
)

const (
	insertProductSQL = `INSERT INTO products (name, description, price, stock)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	listProductsSQL = `SELECT id, name, description, price, stock, created_at
		FROM products ORDER BY id LIMIT $1 OFFSET $2`

	getProductByIDSQL = `SELECT id, name, description, price, stock, created_at
		FROM products WHERE id = $1`

	updateProductSQL = `UPDATE products SET
		name = COALESCE($2, name),
		description = CASE WHEN $6 THEN NULL ELSE COALESCE($3, description) END,
		price = COALESCE($4, price),
		stock = COALESCE($5, stock)
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	getProductStockSQL = `SELECT stock FROM products WHERE id = $1`
)

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ cart.StockReader   = (*ProductRepository)(nil)
)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	db dbtx
}

// NewProductRepository returns a ProductRepository that uses the given pool
// or transaction.
func NewProductRepository(db dbtx) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts p and fills in its ID and CreatedAt.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.db.QueryRow(ctx, insertProductSQL, p.Name, p.Description, p.Price, p.Stock).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "insert product")
	}
	return nil
}

// List returns one page of the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context, offset, limit int) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, listProductsSQL, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "query products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	return products, nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.db.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return &p, nil
}

// Update applies the non-nil fields of u and clears the description when
// u.ClearDescription is set.
func (r *ProductRepository) Update(ctx context.Context, id int64, u product.Update) error {
	tag, err := r.db.Exec(ctx, updateProductSQL, id, u.Name, u.Description, u.Price, u.Stock, u.ClearDescription)
	if err != nil {
		return errors.Wrapf(err, "update product %d", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes a product. Cart lines referencing it cascade; order items
// block the delete.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return product.ErrInUse
		}
		return errors.Wrapf(err, "delete product %d", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Stock returns the current stock of a product.
func (r *ProductRepository) Stock(ctx context.Context, id int64) (int, error) {
	var stock int
	if err := r.db.QueryRow(ctx, getProductStockSQL, id).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, product.ErrNotFound
		}
		return 0, errors.Wrapf(err, "get stock of product %d", id)
	}
	return stock, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt)
	return p, err
}
