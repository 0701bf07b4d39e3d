package product

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop-api/internal/domain/apperr"
)

const maxNameLen = 100

// Catalog paging bounds.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// MaxStock is the largest stock the INTEGER column holds.
const MaxStock = math.MaxInt32

// CreateRequest holds the input for adding a catalog item.
type CreateRequest struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	Stock       int
}

// Service implements catalog management on top of a Repository.
type Service struct {
	products Repository
}

// NewService creates a product Service.
func NewService(products Repository) *Service {
	return &Service{products: products}
}

// Create validates and persists a new product, returning it with its
// store-assigned id.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Product, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if err := validatePrice(req.Price); err != nil {
		return nil, err
	}
	if err := validateStock(req.Stock); err != nil {
		return nil, err
	}

	p := &Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// List returns one page of the catalog ordered by id. offset must be
// non-negative and limit within [1, MaxLimit].
func (s *Service) List(ctx context.Context, offset, limit int) ([]Product, error) {
	if offset < 0 {
		return nil, apperr.Validation("offset", "must not be negative")
	}
	if limit < 1 || limit > MaxLimit {
		return nil, apperr.Validation("limit", "must be between 1 and 100")
	}
	products, err := s.products.List(ctx, offset, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

// Update applies a partial update. At least one field must be set.
func (s *Service) Update(ctx context.Context, id int64, u Update) error {
	if u.IsEmpty() {
		return apperr.Validation("body", "at least one field must be provided")
	}
	if u.Name != nil {
		if err := validateName(*u.Name); err != nil {
			return err
		}
		name := strings.TrimSpace(*u.Name)
		u.Name = &name
	}
	if u.Price != nil {
		if err := validatePrice(*u.Price); err != nil {
			return err
		}
	}
	if u.Stock != nil {
		if err := validateStock(*u.Stock); err != nil {
			return err
		}
	}
	return s.products.Update(ctx, id, u)
}

// Delete removes a product from the catalog.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.products.Delete(ctx, id)
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Validation("name", "must not be empty")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return apperr.Validation("name", "must be at most 100 characters")
	}
	return nil
}

// validatePrice accepts non-negative amounts with at most two fractional
// digits, matching the NUMERIC(10,2) column.
func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return apperr.Validation("price", "must not be negative")
	}
	if !price.Equal(price.Truncate(2)) {
		return apperr.Validation("price", "must have at most 2 decimal places")
	}
	if price.GreaterThanOrEqual(decimal.New(1, 8)) {
		return apperr.Validation("price", "is too large")
	}
	return nil
}

func validateStock(stock int) error {
	if stock < 0 {
		return apperr.Validation("stock", "must not be negative")
	}
	if stock > MaxStock {
		return apperr.Validation("stock", "is too large")
	}
	return nil
}
