//go:build integration

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/shop-api/internal/storage/postgres"
)

var (
	baseURL    string
	httpClient *http.Client
	userSeq    atomic.Int64
)

// Response types are defined locally to keep the tests black-box.

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Field     string `json:"field"`
	ProductID int64  `json:"product_id"`
}

type productResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       string  `json:"price"`
	Stock       int     `json:"stock"`
}

type cartLineResponse struct {
	ID        int64 `json:"id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type orderResponse struct {
	ID          int64  `json:"id"`
	TotalAmount string `json:"total_amount"`
	Status      string `json:"status"`
	Items       []struct {
		ProductID int64  `json:"product_id"`
		Name      string `json:"name"`
		Quantity  int    `json:"quantity"`
		Price     string `json:"price"`
	} `json:"items"`
}

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "shop",
				"POSTGRES_PASSWORD": "shop",
				"POSTGRES_DB":       "shop",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Printf("start postgres container: %v", err)
		return 1
	}
	defer func() {
		if err := container.Terminate(context.Background()); err != nil {
			log.Printf("terminate postgres container: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		log.Printf("container host: %v", err)
		return 1
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Printf("container port: %v", err)
		return 1
	}

	cfg := &Config{
		DatabaseURL: fmt.Sprintf("postgres://shop:shop@%s:%s/shop?sslmode=disable", host, port.Port()),
		Auth:        AuthConfig{Secret: "integration-secret", TokenTTL: time.Hour},
		Checkout:    CheckoutConfig{TxTimeout: 10 * time.Second},
		RateLimit:   RateLimitConfig{Max: 10000, Window: time.Minute},
		CORS:        CORSConfig{Origins: []string{"*"}},
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("connect: %v", err)
		return 1
	}
	defer pool.Close()
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		log.Printf("migrate: %v", err)
		return 1
	}

	srvCtx, stop := context.WithCancel(context.Background())
	defer stop()
	healthSvc, h, err := newServer(srvCtx, pool, cfg, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	if err != nil {
		log.Printf("wire server: %v", err)
		return 1
	}
	healthSvc.SetReady(true)

	srv := httptest.NewServer(h)
	defer srv.Close()
	baseURL = srv.URL
	httpClient = &http.Client{Timeout: 10 * time.Second}

	return m.Run()
}

// HTTP helpers.

func do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, baseURL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, body)
	}
}

// signUp registers a fresh user and returns a bearer token.
func signUp(t *testing.T) string {
	t.Helper()
	name := "user" + strconv.FormatInt(userSeq.Add(1), 10)
	creds := map[string]string{
		"username": name,
		"password": "secret123",
		"email":    name + "@example.com",
	}

	resp := do(t, http.MethodPost, "/users/register", "", creds)
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = do(t, http.MethodPost, "/users/login", "", map[string]string{
		"username": creds["username"],
		"password": creds["password"],
	})
	expectStatus(t, resp, http.StatusOK)
	return decodeJSON[struct {
		Token string `json:"token"`
	}](t, resp).Token
}

func createProduct(t *testing.T, token, name, price string, stock int) int64 {
	t.Helper()
	resp := do(t, http.MethodPost, "/products", token, map[string]any{
		"name":  name,
		"price": price,
		"stock": stock,
	})
	expectStatus(t, resp, http.StatusCreated)
	return decodeJSON[struct {
		ID int64 `json:"id"`
	}](t, resp).ID
}

func addToCart(t *testing.T, token string, productID int64, quantity int) int64 {
	t.Helper()
	resp := do(t, http.MethodPost, "/cart", token, map[string]any{
		"product_id": productID,
		"quantity":   quantity,
	})
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = do(t, http.MethodGet, "/cart", token, nil)
	expectStatus(t, resp, http.StatusOK)
	for _, line := range decodeJSON[[]cartLineResponse](t, resp) {
		if line.ProductID == productID {
			return line.ID
		}
	}
	t.Fatalf("product %d not in cart", productID)
	return 0
}

func getProduct(t *testing.T, id int64) productResponse {
	t.Helper()
	resp := do(t, http.MethodGet, "/products/"+strconv.FormatInt(id, 10), "", nil)
	expectStatus(t, resp, http.StatusOK)
	return decodeJSON[productResponse](t, resp)
}

// Tests.

func TestHealth(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		resp := do(t, http.MethodGet, path, "", nil)
		expectStatus(t, resp, http.StatusOK)
		body := decodeJSON[struct {
			Status string `json:"status"`
		}](t, resp)
		assert.Equal(t, "ok", body.Status, path)
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("request id echoed", func(t *testing.T) {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, baseURL+"/products", nil)
		require.NoError(t, err)
		req.Header.Set("X-Request-ID", "custom-request-id-12345")
		resp, err := httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, "custom-request-id-12345", resp.Header.Get("X-Request-ID"))
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Remaining"))
	})

	t.Run("cors preflight", func(t *testing.T) {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, baseURL+"/orders", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		resp, err := httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Methods"))
	})
}

func TestProducts(t *testing.T) {
	token := signUp(t)
	first := createProduct(t, token, "Plate", "4.00", 1)
	createProduct(t, token, "Bowl", "3.00", 1)

	t.Run("paging", func(t *testing.T) {
		resp := do(t, http.MethodGet, "/products?limit=1", "", nil)
		expectStatus(t, resp, http.StatusOK)
		assert.Len(t, decodeJSON[[]productResponse](t, resp), 1)

		resp = do(t, http.MethodGet, "/products?offset=1000000&limit=100", "", nil)
		expectStatus(t, resp, http.StatusOK)
		assert.Empty(t, decodeJSON[[]productResponse](t, resp))

		for _, tt := range []struct{ query, field string }{
			{"limit=0", "limit"},
			{"limit=101", "limit"},
			{"offset=-1", "offset"},
		} {
			resp := do(t, http.MethodGet, "/products?"+tt.query, "", nil)
			expectStatus(t, resp, http.StatusBadRequest)
			assert.Equal(t, tt.field, decodeJSON[errorResponse](t, resp).Field, tt.query)
		}
	})

	t.Run("description can be cleared", func(t *testing.T) {
		path := "/products/" + strconv.FormatInt(first, 10)
		resp := do(t, http.MethodPut, path, token, map[string]any{"description": "white"})
		expectStatus(t, resp, http.StatusOK)
		resp.Body.Close()
		got := getProduct(t, first)
		require.NotNil(t, got.Description)
		assert.Equal(t, "white", *got.Description)

		resp = do(t, http.MethodPut, path, token, map[string]any{"stock": 2})
		expectStatus(t, resp, http.StatusOK)
		resp.Body.Close()
		require.NotNil(t, getProduct(t, first).Description)

		resp = do(t, http.MethodPut, path, token, map[string]any{"description": nil})
		expectStatus(t, resp, http.StatusOK)
		resp.Body.Close()
		assert.Nil(t, getProduct(t, first).Description)
	})

	t.Run("integer bounds", func(t *testing.T) {
		resp := do(t, http.MethodPost, "/products", token, map[string]any{
			"name":  "Vault",
			"price": "1.00",
			"stock": 3_000_000_000,
		})
		expectStatus(t, resp, http.StatusBadRequest)
		assert.Equal(t, "stock", decodeJSON[errorResponse](t, resp).Field)

		resp = do(t, http.MethodPost, "/cart", token, map[string]any{
			"product_id": first,
			"quantity":   3_000_000_000,
		})
		expectStatus(t, resp, http.StatusBadRequest)
		assert.Equal(t, "quantity", decodeJSON[errorResponse](t, resp).Field)
	})
}

func TestCheckout(t *testing.T) {
	token := signUp(t)
	mug := createProduct(t, token, "Mug", "9.99", 5)
	kettle := createProduct(t, token, "Kettle", "0.10", 3)

	mugLine := addToCart(t, token, mug, 2)
	kettleLine := addToCart(t, token, kettle, 3)

	resp := do(t, http.MethodPost, "/orders", token, map[string]any{
		"cart_items": []int64{mugLine, kettleLine},
	})
	expectStatus(t, resp, http.StatusCreated)
	created := decodeJSON[struct {
		OrderID int64  `json:"order_id"`
		Message string `json:"message"`
	}](t, resp)
	require.Positive(t, created.OrderID)
	assert.Equal(t, "order created", created.Message)

	resp = do(t, http.MethodGet, "/orders/"+strconv.FormatInt(created.OrderID, 10), token, nil)
	expectStatus(t, resp, http.StatusOK)
	o := decodeJSON[orderResponse](t, resp)
	assert.Equal(t, "20.28", o.TotalAmount)
	assert.Equal(t, "pending", o.Status)
	require.Len(t, o.Items, 2)

	assert.Equal(t, 3, getProduct(t, mug).Stock)
	assert.Equal(t, 0, getProduct(t, kettle).Stock)

	resp = do(t, http.MethodGet, "/cart", token, nil)
	expectStatus(t, resp, http.StatusOK)
	assert.Empty(t, decodeJSON[[]cartLineResponse](t, resp))

	// The consumed lines are gone, so a replay selects nothing.
	resp = do(t, http.MethodPost, "/orders", token, map[string]any{
		"cart_items": []int64{mugLine, kettleLine},
	})
	expectStatus(t, resp, http.StatusBadRequest)
	assert.Equal(t, "empty_cart_selection", decodeJSON[errorResponse](t, resp).Kind)

	resp = do(t, http.MethodPut, "/orders/"+strconv.FormatInt(created.OrderID, 10)+"/status", token,
		map[string]string{"status": "paid"})
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestCheckout_InsufficientStock(t *testing.T) {
	token := signUp(t)
	scarce := createProduct(t, token, "Scarce", "5.00", 5)
	line := addToCart(t, token, scarce, 4)

	// Another buyer drains the stock after the line was added.
	other := signUp(t)
	otherLine := addToCart(t, other, scarce, 3)
	resp := do(t, http.MethodPost, "/orders", other, map[string]any{"cart_items": []int64{otherLine}})
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = do(t, http.MethodPost, "/orders", token, map[string]any{"cart_items": []int64{line}})
	expectStatus(t, resp, http.StatusBadRequest)
	e := decodeJSON[errorResponse](t, resp)
	assert.Equal(t, "insufficient_stock", e.Kind)
	assert.Equal(t, scarce, e.ProductID)

	assert.Equal(t, 2, getProduct(t, scarce).Stock)

	resp = do(t, http.MethodGet, "/cart", token, nil)
	expectStatus(t, resp, http.StatusOK)
	assert.Len(t, decodeJSON[[]cartLineResponse](t, resp), 1, "failed checkout keeps the cart")
}

func TestCheckout_ForeignCartItem(t *testing.T) {
	owner := signUp(t)
	p := createProduct(t, owner, "Private", "1.00", 10)
	line := addToCart(t, owner, p, 1)

	intruder := signUp(t)
	resp := do(t, http.MethodPost, "/orders", intruder, map[string]any{"cart_items": []int64{line}})
	expectStatus(t, resp, http.StatusBadRequest)
	assert.Equal(t, "empty_cart_selection", decodeJSON[errorResponse](t, resp).Kind)

	assert.Equal(t, 10, getProduct(t, p).Stock)
}

func TestCheckout_RequiresAuth(t *testing.T) {
	resp := do(t, http.MethodPost, "/orders", "", map[string]any{"cart_items": []int64{1}})
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = do(t, http.MethodPost, "/orders", "not-a-token", map[string]any{"cart_items": []int64{1}})
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestCheckout_InvalidSelection(t *testing.T) {
	token := signUp(t)
	for _, body := range []map[string]any{
		{"cart_items": []int64{}},
		{"cart_items": []int64{0}},
		{},
	} {
		resp := do(t, http.MethodPost, "/orders", token, body)
		expectStatus(t, resp, http.StatusBadRequest)
		e := decodeJSON[errorResponse](t, resp)
		assert.Equal(t, "validation", e.Kind)
		assert.Equal(t, "cart_items", e.Field)
	}
}
