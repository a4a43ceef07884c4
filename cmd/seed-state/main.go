// Command seed-state loads a shopper state fixture (cart and compare list)
// into the configured durable store. It is used to prepare demo and test
// environments.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/medsupply-storefront/internal/app"
	"github.com/xenking/medsupply-storefront/internal/domain/cart"
	"github.com/xenking/medsupply-storefront/internal/domain/compare"
	"github.com/xenking/medsupply-storefront/internal/domain/product"
	"github.com/xenking/medsupply-storefront/internal/storage/kv"
)

type cartItem struct {
	Product  product.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

type fixture struct {
	Cart    []cartItem        `json:"cart"`
	Compare []product.Product `json:"compare"`
}

func main() {
	var (
		cfg         app.StoreConfig
		fixtureFile string
		reset       bool
	)

	flag.StringVar(&cfg.Driver, "driver", app.DriverRedis, "state store driver: redis or postgres")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", "localhost:6379", "Redis address")
	flag.StringVar(&cfg.RedisPrefix, "redis-prefix", "storefront:", "prefix for every Redis key")
	flag.IntVar(&cfg.RedisDB, "redis-db", 0, "Redis database number")
	flag.StringVar(&cfg.DatabaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&fixtureFile, "file", "db/seed/state.json", "path to the state fixture")
	flag.BoolVar(&reset, "reset", true, "clear existing cart and compare list first")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.Driver == app.DriverMemory {
		lg.Fatal("Seeding the memory store has no effect; use redis or postgres")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, cfg, fixtureFile, reset); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, cfg app.StoreConfig, fixtureFile string, reset bool) error {
	lg.Info("Reading fixture", zap.String("path", fixtureFile))

	data, err := os.ReadFile(fixtureFile)
	if err != nil {
		return errors.Wrap(err, "read fixture")
	}
	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return errors.Wrap(err, "parse fixture")
	}

	store, closeStore, err := app.OpenStore(ctx, lg, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	return seed(ctx, lg, store, f, reset)
}

// seed goes through the engines so the fixture obeys the same rules as
// shopper actions: merged cart lines and the compare limit.
func seed(ctx context.Context, lg *zap.Logger, store kv.Store, f fixture, reset bool) error {
	c := cart.New(ctx, store, lg.Named("cart"))
	cmp := compare.New(ctx, store, nil, lg.Named("compare"))

	if reset {
		if err := c.Clear(ctx); err != nil {
			return errors.Wrap(err, "clear cart")
		}
		if err := cmp.Clear(ctx); err != nil {
			return errors.Wrap(err, "clear compare")
		}
	}

	for _, l := range f.Cart {
		if err := c.Add(ctx, l.Product, l.Quantity); err != nil {
			return errors.Wrapf(err, "add %q to cart", l.Product.ID)
		}
		lg.Info("Added cart line", zap.String("id", l.Product.ID), zap.Int("quantity", l.Quantity))
	}

	for _, p := range f.Compare {
		err := cmp.Add(ctx, p)
		switch {
		case errors.Is(err, compare.ErrAlreadyInCompare), errors.Is(err, compare.ErrCompareFull):
			lg.Warn("Skipping compare entry", zap.String("id", p.ID), zap.Error(err))
		case err != nil:
			return errors.Wrapf(err, "add %q to compare", p.ID)
		default:
			lg.Info("Added compare entry", zap.String("id", p.ID))
		}
	}

	lg.Info("Seeded state",
		zap.Int("cart_lines", len(c.Lines())),
		zap.Int("compare_entries", len(cmp.Entries())),
	)
	return nil
}
