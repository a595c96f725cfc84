package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/vera-store/internal/domain/asset"
	"github.com/xenking/vera-store/internal/domain/catalog"
	"github.com/xenking/vera-store/internal/domain/checkout"
	"github.com/xenking/vera-store/internal/handler"
	"github.com/xenking/vera-store/internal/session"
	"github.com/xenking/vera-store/pkg/health"
	"github.com/xenking/vera-store/pkg/httpmiddleware"
)

// API is the fully wired storefront: the HTTP handler chain plus the
// components with background work.
type API struct {
	Handler  http.Handler
	Catalog  *catalog.Catalog
	Sessions *session.Store
	Health   *health.Health
	Limiter  *httpmiddleware.Limiter
}

// NewAPI generates the catalogue and wires every component.
func NewAPI(ctx context.Context, t httpmiddleware.Telemetry, cfg *Config) (*API, error) {
	lg := zctx.From(ctx)

	cat, err := catalog.Generate(catalog.GeneratorConfig{
		Size: cfg.Catalog.Size,
		Seed: cfg.Catalog.Seed,
	})
	if err != nil {
		return nil, errors.Wrap(err, "generate catalog")
	}
	lg.Info("Catalogue generated",
		zap.Int("products", cat.Len()),
		zap.Uint64("seed", cfg.Catalog.Seed),
	)

	sessions := session.NewStore(cat, session.StoreConfig{
		TTL:       cfg.Session.TTL,
		Sweep:     cfg.Session.Sweep,
		MaxActive: cfg.Session.MaxActive,
	})

	healthSvc := health.New()
	healthSvc.Add(health.Liveness, "goroutines", health.GoroutineCountCheck(10000))
	healthSvc.Add(health.Readiness, "catalog", health.MinCountCheck("catalog", 1, cat.Len),
		health.WithThresholds(1, 1),
	)
	healthSvc.Add(health.Readiness, "sessions",
		health.CapacityCheck("sessions", cfg.Session.MaxActive, sessions.Len),
	)

	checkoutSvc, err := checkout.NewService(checkout.NoopProvider{}, t.TracerProvider(), t.MeterProvider())
	if err != nil {
		return nil, errors.Wrap(err, "create checkout service")
	}

	urls := asset.NewURLBuilder(cfg.Images.BaseURL)
	var images asset.Resolver = asset.NewStaticResolver(urls)
	if cfg.Images.Verify {
		images = asset.NewHTTPResolver(asset.HTTPResolverConfig{
			URLs:           urls,
			Timeout:        cfg.Images.Timeout,
			TracerProvider: t.TracerProvider(),
		})
	}

	h, err := handler.NewHandler(
		handler.HandlerConfig{PageSize: cfg.Catalog.PageSize},
		cat,
		sessions,
		checkoutSvc,
		images,
		t.MeterProvider(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create handler")
	}

	mux := http.NewServeMux()
	healthSvc.Register(mux)
	h.Register(mux)

	routeFinder := httpmiddleware.MakeRouteFinder(mux)
	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	})

	return &API{
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader, "Location"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			limiter.Middleware(),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Instrument("vera-api", routeFinder, t),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
		Catalog:  cat,
		Sessions: sessions,
		Health:   healthSvc,
		Limiter:  limiter,
	}, nil
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, t httpmiddleware.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))
	ctx = zctx.Base(ctx, lg)

	api, err := NewAPI(ctx, t, cfg)
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           api.Handler,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return api.Sessions.Run(gctx) })
	g.Go(func() error { return api.Limiter.Run(gctx) })
	g.Go(func() error { return api.Health.Run(gctx, cfg.Health.Interval) })
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
		api.Health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})

	api.Health.SetReady(true)
	return g.Wait()
}
