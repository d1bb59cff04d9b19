package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stitchline/catalog-api/internal/api"
	"github.com/stitchline/catalog-api/internal/catalog"
	"github.com/stitchline/catalog-api/internal/repository"
	"github.com/stitchline/catalog-api/internal/source"
	"github.com/stitchline/catalog-api/internal/wishlist"
	"github.com/stitchline/catalog-api/pkg/health"
	"github.com/stitchline/catalog-api/pkg/httpmiddleware"
)

// sessionCleanupInterval is how often idle wishlist sessions are
// evicted from the in-process registry.
const sessionCleanupInterval = 10 * time.Minute

// Run creates all dependencies, starts the HTTP server, and handles
// graceful shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("catalog_source", cfg.Feed.Source),
		zap.String("wishlist_backend", cfg.Wishlist.Backend),
	)

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Catalog source.
	var src catalog.Source
	switch cfg.Feed.Source {
	case "file":
		src = source.NewFile(cfg.Feed.ProductsFile)
	case "http":
		src = source.NewHTTP(cfg.Feed.URL, cfg.Feed.FetchTimeout)
	case "postgres":
		pool, err := repository.NewPool(ctx, cfg.Feed.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := repository.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		src = repository.NewCatalogRepository(pool)
	}

	// Wishlist sessions.
	var sessions *wishlist.Sessions
	switch cfg.Wishlist.Backend {
	case "memory":
		sessions = wishlist.NewSessions(func(string) wishlist.Store {
			return wishlist.NewMemoryStore()
		})
	case "redis":
		opts, err := redis.ParseURL(cfg.Wishlist.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis URL")
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()

		healthSvc.AddReadinessCheck("redis", 5*time.Second, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		sessions = wishlist.NewSessions(func(sessionID string) wishlist.Store {
			return wishlist.NewRedisStore(rdb, sessionID, cfg.Wishlist.SessionTTL)
		})
	}
	sessions.StartCleanup(ctx, sessionCleanupInterval, cfg.Wishlist.SessionTTL)

	// Catalog store: load now, then keep refreshing in the background.
	// A failed load is not fatal — the API serves its empty-state error
	// until a later refresh succeeds.
	store := catalog.NewStore(src)
	if err := store.Refresh(ctx); err != nil {
		lg.Error("Initial catalog load failed", zap.Error(err))
	} else {
		lg.Info("Catalog loaded", zap.Int("products", len(store.Products())))
	}
	if cfg.Feed.RefreshInterval > 0 {
		go refreshLoop(ctx, store, cfg.Feed.RefreshInterval)
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// HTTP surface: health endpoints + API routes on one server.
	h := api.NewHandler(store, sessions)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Routes(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "X-Session-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("catalog-api", m),
			httpmiddleware.Labeler(),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// refreshLoop re-fetches the catalog at the configured interval until
// the context is cancelled. Stale completions are expected when a fetch
// outlives the next tick; they are logged and dropped.
func refreshLoop(ctx context.Context, store *catalog.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lg := zctx.From(ctx)
			switch err := store.Refresh(ctx); {
			case err == nil:
				lg.Debug("Catalog refreshed", zap.Int("products", len(store.Products())))
			case errors.Is(err, catalog.ErrStaleRefresh):
				lg.Debug("Catalog refresh superseded")
			default:
				lg.Warn("Catalog refresh failed", zap.Error(err))
			}
		}
	}
}
