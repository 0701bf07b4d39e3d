// Command seed-db applies the schema and loads a product catalog and a demo
// user into the database.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/shop-api/internal/domain/product"
	"github.com/xenking/shop-api/internal/domain/user"
	"github.com/xenking/shop-api/internal/storage/postgres"
)

// config is loaded from flags and SHOP_SEED_ environment variables.
type config struct {
	DatabaseURL string   `usage:"PostgreSQL connection URL (or DATABASE_URL env)" flag:"database-url"`
	Catalog     []string `default:"db/seed/products.json" usage:"Catalog files, JSON arrays, optionally gzip-compressed (.gz)"`
	Force       bool     `default:"false" usage:"Load the catalog even if products already exist"`
	DemoUser    string   `default:"demo" usage:"Username of the demo account, empty skips it" flag:"demo-user"`
	DemoEmail   string   `default:"demo@example.com" usage:"Email of the demo account" flag:"demo-email"`
	DemoPass    string   `default:"demo1234" usage:"Password of the demo account" flag:"demo-password"`
}

func main() {
	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	var cfg config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP_SEED",
		SkipFiles: true,
	})
	if err := loader.Load(); err != nil {
		lg.Fatal("Load config", zap.Error(err))
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url, SHOP_SEED_DATABASE_URL or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, cfg); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, cfg config) error {
	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, lg, product.NewService(postgres.NewProductRepository(pool)), cfg); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if cfg.DemoUser != "" {
		// Register never issues tokens, so no issuer is needed.
		users := user.NewService(postgres.NewUserRepository(pool), nil)
		if err := seedDemoUser(ctx, lg, users, cfg); err != nil {
			return errors.Wrap(err, "seed demo user")
		}
	}
	return nil
}

type catalogService interface {
	Create(ctx context.Context, req product.CreateRequest) (*product.Product, error)
	List(ctx context.Context, offset, limit int) ([]product.Product, error)
}

func seedCatalog(ctx context.Context, lg *zap.Logger, products catalogService, cfg config) error {
	existing, err := products.List(ctx, 0, 1)
	if err != nil {
		return errors.Wrap(err, "list products")
	}
	if len(existing) > 0 && !cfg.Force {
		lg.Info("Catalog already present, skipping")
		return nil
	}

	lg.Info("Reading catalog", zap.Strings("files", cfg.Catalog))
	items, err := readCatalogs(ctx, cfg.Catalog)
	if err != nil {
		return err
	}

	for _, item := range items {
		p, err := products.Create(ctx, item)
		if err != nil {
			return errors.Wrapf(err, "create product %q", item.Name)
		}
		lg.Debug("Created product", zap.Int64("id", p.ID), zap.String("name", p.Name))
	}
	lg.Info("Catalog loaded", zap.Int("products", len(items)))
	return nil
}

type registrar interface {
	Register(ctx context.Context, req user.RegisterRequest) (*user.User, error)
}

func seedDemoUser(ctx context.Context, lg *zap.Logger, users registrar, cfg config) error {
	u, err := users.Register(ctx, user.RegisterRequest{
		Username: cfg.DemoUser,
		Password: cfg.DemoPass,
		Email:    cfg.DemoEmail,
	})
	switch {
	case errors.Is(err, user.ErrDuplicate):
		lg.Info("Demo user already exists", zap.String("username", cfg.DemoUser))
		return nil
	case err != nil:
		return err
	}
	lg.Info("Created demo user", zap.Int64("id", u.ID), zap.String("username", u.Username))
	return nil
}
