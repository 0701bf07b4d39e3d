package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/shop-api/internal/domain/product"
	"github.com/xenking/shop-api/internal/domain/user"
)

func TestDecodeCatalog(t *testing.T) {
	items, err := decodeCatalog(context.Background(), strings.NewReader(`[
		{"name":"Mug","description":"big","price":"9.99","stock":3,"sku":"ignored"},
		{"name":"Filter","description":null,"price":4.5}
	]`))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Mug", items[0].Name)
	require.NotNil(t, items[0].Description)
	assert.Equal(t, "big", *items[0].Description)
	assert.True(t, decimal.RequireFromString("9.99").Equal(items[0].Price))
	assert.Equal(t, 3, items[0].Stock)

	assert.Nil(t, items[1].Description)
	assert.True(t, decimal.RequireFromString("4.5").Equal(items[1].Price))
	assert.Zero(t, items[1].Stock)
}

func TestDecodeCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"not an array", `{"name":"Mug"}`, ""},
		{"missing name", `[{"price":"1"}]`, "name is required"},
		{"missing price", `[{"name":"Mug"}]`, "price is required"},
		{"bad price", `[{"name":"Mug","price":"abc"}]`, "price"},
		{"bad stock", `[{"name":"Mug","price":"1","stock":"many"}]`, "stock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeCatalog(context.Background(), strings.NewReader(tt.input))
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func TestReadCatalogs(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "a.json")
	require.NoError(t, os.WriteFile(plain, []byte(`[{"name":"A","price":"1.00"},{"name":"B","price":"2.00"}]`), 0o600))
	compressed := filepath.Join(dir, "b.json.gz")
	writeGzip(t, compressed, `[{"name":"C","price":"3.00","stock":7}]`)

	items, err := readCatalogs(context.Background(), []string{plain, compressed})
	require.NoError(t, err)

	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"A", "B", "C"}, names)
	assert.Equal(t, 7, items[2].Stock)

	_, err = readCatalogs(context.Background(), []string{plain, filepath.Join(dir, "missing.json")})
	assert.ErrorContains(t, err, "missing.json")
}

type fakeCatalog struct {
	existing []product.Product
	created  []product.CreateRequest
	limit    int
}

func (f *fakeCatalog) Create(_ context.Context, req product.CreateRequest) (*product.Product, error) {
	f.created = append(f.created, req)
	return &product.Product{ID: int64(len(f.created)), Name: req.Name}, nil
}

func (f *fakeCatalog) List(_ context.Context, _, limit int) ([]product.Product, error) {
	f.limit = limit
	return f.existing, nil
}

func TestSeedCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"A","price":"1.00"}]`), 0o600))
	cfg := config{Catalog: []string{path}}

	t.Run("empty store is seeded", func(t *testing.T) {
		f := &fakeCatalog{}
		require.NoError(t, seedCatalog(context.Background(), zap.NewNop(), f, cfg))
		assert.Len(t, f.created, 1)
		assert.Equal(t, 1, f.limit)
	})

	t.Run("existing catalog is kept", func(t *testing.T) {
		f := &fakeCatalog{existing: []product.Product{{ID: 1}}}
		require.NoError(t, seedCatalog(context.Background(), zap.NewNop(), f, cfg))
		assert.Empty(t, f.created)
	})

	t.Run("force", func(t *testing.T) {
		f := &fakeCatalog{existing: []product.Product{{ID: 1}}}
		forced := cfg
		forced.Force = true
		require.NoError(t, seedCatalog(context.Background(), zap.NewNop(), f, forced))
		assert.Len(t, f.created, 1)
	})
}

type fakeRegistrar struct {
	err error
}

func (f fakeRegistrar) Register(_ context.Context, req user.RegisterRequest) (*user.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &user.User{ID: 1, Username: req.Username}, nil
}

func TestSeedDemoUser(t *testing.T) {
	cfg := config{DemoUser: "demo", DemoEmail: "demo@example.com", DemoPass: "demo1234"}

	assert.NoError(t, seedDemoUser(context.Background(), zap.NewNop(), fakeRegistrar{}, cfg))
	assert.NoError(t, seedDemoUser(context.Background(), zap.NewNop(), fakeRegistrar{err: user.ErrDuplicate}, cfg))
	assert.Error(t, seedDemoUser(context.Background(), zap.NewNop(), fakeRegistrar{err: user.ErrInvalidCredentials}, cfg))
}
