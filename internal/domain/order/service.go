package order

import (
	"context"
	"maps"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/shop-api/internal/domain/apperr"
)

const instrumentationName = "github.com/xenking/shop-api/internal/domain/order"

// Service implements checkout and the order queries.
type Service struct {
	store  Store
	orders Repository

	tracer    trace.Tracer
	checkouts metric.Int64Counter
}

// NewService creates an order Service. The providers may be noop
// implementations.
func NewService(
	store Store,
	orders Repository,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Service, error) {
	checkouts, err := mp.Meter(instrumentationName).Int64Counter("shop.checkouts",
		metric.WithDescription("Checkout attempts by outcome"),
		metric.WithUnit("{checkout}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create checkouts counter")
	}
	return &Service{
		store:     store,
		orders:    orders,
		tracer:    tp.Tracer(instrumentationName),
		checkouts: checkouts,
	}, nil
}

// CreateOrder converts the user's selected cart items into a pending order
// and returns its id.
//
// Everything happens in a single transaction: the cart lines are read and
// locked, stock is checked against the values read in that transaction, the
// order and its items are written, stock is decremented and the consumed cart
// items are deleted. Any failure rolls all of it back.
func (s *Service) CreateOrder(ctx context.Context, userID int64, cartItemIDs []int64) (_ int64, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.CreateOrder",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.Int("cart_items.count", len(cartItemIDs)),
		),
	)
	defer func() {
		kind := apperr.KindOf(rerr)
		outcome := "ok"
		if rerr != nil {
			outcome = kind.String()
			span.RecordError(rerr)
			if kind == apperr.KindInternal {
				span.SetStatus(codes.Error, rerr.Error())
			}
		}
		s.checkouts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		span.End()
	}()

	ids, err := normalizeIDs(cartItemIDs)
	if err != nil {
		return 0, err
	}

	var orderID int64
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		lines, err := tx.CartLines(ctx, userID, ids)
		if err != nil {
			return errors.Wrap(err, "get cart lines")
		}
		if len(lines) == 0 {
			return apperr.EmptyCartSelection()
		}

		demand, err := checkStock(lines)
		if err != nil {
			return err
		}

		o := newPendingOrder(userID, lines)
		if err := tx.InsertOrder(ctx, o); err != nil {
			return errors.Wrap(err, "insert order")
		}

		// Ascending product id keeps lock acquisition order identical across
		// concurrent checkouts.
		for _, productID := range slices.Sorted(maps.Keys(demand)) {
			if err := tx.DecrementStock(ctx, productID, demand[productID]); err != nil {
				return errors.Wrapf(err, "decrement stock of product %d", productID)
			}
		}

		consumed := make([]int64, len(lines))
		for i, l := range lines {
			consumed[i] = l.CartItemID
		}
		if err := tx.DeleteCartItems(ctx, userID, consumed); err != nil {
			return errors.Wrap(err, "delete cart items")
		}

		orderID = o.ID
		return nil
	})
	if err != nil {
		return 0, apperr.Internal(err, "create order")
	}

	span.SetAttributes(attribute.Int64("order.id", orderID))
	return orderID, nil
}

// normalizeIDs rejects an empty or non-positive selection and returns the ids
// sorted and de-duplicated.
func normalizeIDs(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation("cart_items", "must contain at least one cart item id")
	}
	out := slices.Clone(ids)
	for _, id := range out {
		if id <= 0 {
			return nil, apperr.Validation("cart_items", "must contain positive ids")
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// checkStock walks the lines in order and fails on the first product whose
// stock cannot cover the quantity requested so far. It returns the total
// quantity per product.
func checkStock(lines []Line) (map[int64]int, error) {
	demand := make(map[int64]int, len(lines))
	for _, l := range lines {
		demand[l.ProductID] += l.Quantity
		if l.Stock < demand[l.ProductID] {
			return nil, apperr.InsufficientStock(l.ProductID)
		}
	}
	return demand, nil
}

func newPendingOrder(userID int64, lines []Line) *Order {
	o := &Order{
		UserID:      userID,
		Status:      StatusPending,
		TotalAmount: decimal.Zero,
		Items:       make([]Item, len(lines)),
	}
	for i, l := range lines {
		o.TotalAmount = o.TotalAmount.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		o.Items[i] = Item{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.UnitPrice,
		}
	}
	return o
}

// ListOrders returns the user's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, userID int64) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// GetOrder returns one of the user's orders.
func (s *Service) GetOrder(ctx context.Context, userID, id int64) (*Order, error) {
	return s.orders.GetByUser(ctx, userID, id)
}

// UpdateStatus moves one of the user's orders to status. Cancelling does not
// restock.
func (s *Service) UpdateStatus(ctx context.Context, userID, id int64, status string) error {
	st, err := ParseStatus(status)
	if err != nil {
		return err
	}
	return s.orders.UpdateStatus(ctx, userID, id, st)
}
