// Package handler is the HTTP adapter for the domain services.
package handler

import (
	"context"
	"net/http"

	"github.com/xenking/shop-api/internal/domain/auth"
	"github.com/xenking/shop-api/internal/domain/cart"
	"github.com/xenking/shop-api/internal/domain/order"
	"github.com/xenking/shop-api/internal/domain/product"
	"github.com/xenking/shop-api/internal/domain/user"
	"github.com/xenking/shop-api/pkg/httpmiddleware"
)

// UserService is the subset of user.Service used by the handlers.
type UserService interface {
	Register(ctx context.Context, req user.RegisterRequest) (*user.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Profile(ctx context.Context, id int64) (*user.User, error)
}

// ProductService is the subset of product.Service used by the handlers.
type ProductService interface {
	Create(ctx context.Context, req product.CreateRequest) (*product.Product, error)
	List(ctx context.Context, offset, limit int) ([]product.Product, error)
	Get(ctx context.Context, id int64) (*product.Product, error)
	Update(ctx context.Context, id int64, u product.Update) error
	Delete(ctx context.Context, id int64) error
}

// CartService is the subset of cart.Service used by the handlers.
type CartService interface {
	Add(ctx context.Context, userID, productID int64, quantity int) error
	List(ctx context.Context, userID int64) ([]cart.Line, error)
	UpdateQuantity(ctx context.Context, userID, id int64, quantity int) error
	Remove(ctx context.Context, userID, id int64) error
}

// OrderService is the subset of order.Service used by the handlers.
type OrderService interface {
	CreateOrder(ctx context.Context, userID int64, cartItemIDs []int64) (int64, error)
	ListOrders(ctx context.Context, userID int64) ([]order.Order, error)
	GetOrder(ctx context.Context, userID, id int64) (*order.Order, error)
	UpdateStatus(ctx context.Context, userID, id int64, status string) error
}

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Handler serves the shop API.
type Handler struct {
	users    UserService
	products ProductService
	carts    CartService
	orders   OrderService
	tokens   TokenVerifier
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	users UserService,
	products ProductService,
	carts CartService,
	orders OrderService,
	tokens TokenVerifier,
) *Handler {
	return &Handler{
		users:    users,
		products: products,
		carts:    carts,
		orders:   orders,
		tokens:   tokens,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, httpmiddleware.Route(pattern, fn))
	}

	route("POST /users/register", h.register)
	route("POST /users/login", h.login)
	route("GET /users/me", h.authenticate(h.me))

	route("GET /products", h.listProducts)
	route("GET /products/{id}", h.getProduct)
	route("POST /products", h.authenticate(h.createProduct))
	route("PUT /products/{id}", h.authenticate(h.updateProduct))
	route("DELETE /products/{id}", h.authenticate(h.deleteProduct))

	route("POST /cart", h.authenticate(h.addCartItem))
	route("GET /cart", h.authenticate(h.listCart))
	route("PUT /cart/{id}", h.authenticate(h.updateCartItem))
	route("DELETE /cart/{id}", h.authenticate(h.removeCartItem))

	route("POST /orders", h.authenticate(h.createOrder))
	route("GET /orders", h.authenticate(h.listOrders))
	route("GET /orders/{id}", h.authenticate(h.getOrder))
	route("PUT /orders/{id}/status", h.authenticate(h.updateOrderStatus))
}
