package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/medsupply-storefront/internal/domain/cart"
	"github.com/xenking/medsupply-storefront/internal/domain/catalog"
	"github.com/xenking/medsupply-storefront/internal/domain/checkout"
	"github.com/xenking/medsupply-storefront/internal/domain/compare"
	"github.com/xenking/medsupply-storefront/internal/domain/recent"
	"github.com/xenking/medsupply-storefront/internal/domain/session"
	"github.com/xenking/medsupply-storefront/internal/domain/wishlist"
	"github.com/xenking/medsupply-storefront/internal/handler"
	"github.com/xenking/medsupply-storefront/internal/notify"
	"github.com/xenking/medsupply-storefront/internal/remote"
	"github.com/xenking/medsupply-storefront/internal/storage/kv"
	"github.com/xenking/medsupply-storefront/internal/storage/postgres"
	"github.com/xenking/medsupply-storefront/internal/storage/redis"
	"github.com/xenking/medsupply-storefront/pkg/health"
	"github.com/xenking/medsupply-storefront/pkg/httpmiddleware"
)

const notificationBacklog = 50

// Run creates all dependencies, starts the local API server, and handles
// graceful shutdown. It is the single wiring point for the agent.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("remote", cfg.RemoteURL),
		zap.String("store", cfg.Store.Driver),
	)

	store, closeStore, err := OpenStore(ctx, lg, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	// Engines. Each one hydrates itself from the store.
	feed := notify.NewFeed(lg.Named("notify"), notificationBacklog)
	sess := session.New(ctx, store, lg.Named("session"))

	client, err := remote.New(cfg.RemoteURL,
		remote.WithTokenSource(sess),
		remote.WithLogger(lg.Named("remote")),
		remote.WithTracerProvider(m.TracerProvider()),
		remote.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create remote client")
	}

	cartEngine := cart.New(ctx, store, lg.Named("cart"))
	compareEngine := compare.New(ctx, store, feed, lg.Named("compare"))
	recentTracker := recent.New(ctx, store, lg.Named("recent"))

	wishlistEngine := wishlist.New(client, sess, feed, lg.Named("wishlist"))
	sess.Subscribe(wishlistEngine.HandleSession)
	if u, ok := sess.Current(); ok {
		wishlistEngine.HandleSession(ctx, u)
	}

	catalogEngine, err := catalog.New(client, catalog.Options{
		PriceCeiling: decimal.NewFromFloat(cfg.Catalog.PriceCeiling),
		Refresher:    catalog.Poller{Interval: cfg.Catalog.RefreshInterval},
		Logger:       lg.Named("catalog"),
		Meter:        m.MeterProvider().Meter("storefront/catalog"),
	})
	if err != nil {
		return errors.Wrap(err, "create catalog engine")
	}

	checkoutSvc := checkout.NewService(cartEngine, client, client, checkout.Options{
		Pricing: cfg.Checkout.Pricing(),
		Logger:  lg.Named("checkout"),
		Tracer:  m.TracerProvider().Tracer("storefront/checkout"),
	})

	// Health check service.
	healthSvc := health.New()
	if p, ok := store.(kv.Pinger); ok {
		healthSvc.AddReadinessCheck("store", 5*time.Second, health.PingCheck(p))
	}
	healthSvc.AddReadinessCheck("catalog", time.Second,
		health.FreshnessCheck(catalogEngine.LastSuccess, 3*cfg.Catalog.RefreshInterval),
	)
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)

	// The first fetch may fail while the remote is down; the poller retries.
	if err := catalogEngine.Start(ctx); err != nil {
		lg.Warn("Initial catalog fetch failed", zap.Error(err))
	}
	healthSvc.SetReady(true)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	handler.New(handler.Deps{
		Session:       sess,
		Cart:          cartEngine,
		Compare:       compareEngine,
		Wishlist:      wishlistEngine,
		Catalog:       catalogEngine,
		Checkout:      checkoutSvc,
		Recent:        recentTracker,
		Products:      client,
		Notifications: feed,
	}).Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	// Graceful shutdown: wait for cancellation, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		catalogEngine.Stop()
		healthSvc.Stop()
		return nil
	})

	return g.Wait()
}

// OpenStore connects the configured state store. The returned func releases
// it.
func OpenStore(ctx context.Context, lg *zap.Logger, cfg StoreConfig) (kv.Store, func(), error) {
	switch cfg.Driver {
	case DriverRedis:
		s, err := redis.New(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, nil, errors.Wrap(err, "open redis store")
		}
		return s, func() {
			if err := s.Close(); err != nil {
				lg.Warn("Close redis store", zap.Error(err))
			}
		}, nil
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "run migrations")
		}
		return postgres.NewStore(pool), pool.Close, nil
	default:
		lg.Warn("Using in-memory store, state is lost on restart")
		return kv.NewMemory(), func() {}, nil
	}
}
