package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/guessconv/internal/adapters/http/api"
	"github.com/okian/guessconv/internal/adapters/http/site"
	"github.com/okian/guessconv/internal/adapters/http/swagger"
	"github.com/okian/guessconv/internal/adapters/repository"
	app "github.com/okian/guessconv/internal/app"
	"github.com/okian/guessconv/internal/config"
	"github.com/okian/guessconv/internal/domain/dataset"
	"github.com/okian/guessconv/pkg/logger"
	"github.com/okian/guessconv/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 15 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger.Get()); err != nil {
		logger.Get().Error(ctx, "server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// run serves until ctx is canceled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, hub, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()
	defer hub.Close()

	handler, err := buildHandler(ctx, cfg, svc, hub, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutMS)*time.Millisecond)
		defer cancel()
		hub.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}

// buildService opens the configured store and wires the service to the live hub.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, *api.Hub, error) {
	dsn := cfg.PostgresDSN
	if cfg.StoreDriver == config.DriverSQLite {
		dsn = cfg.SQLitePath
	}
	store, err := repository.Open(ctx, cfg.StoreDriver, dsn, repository.WithLogger(log.Named("store")))
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	order, err := repository.ParseOrder(cfg.LeaderboardOrder)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	// The hub reads the board through its own service handle so the two can
	// reference each other without a construction cycle.
	reader := app.New(app.WithStore(store), app.WithOrder(order), app.WithLeaderboardLimit(cfg.LeaderboardLimit), app.WithStatsInterval(0))
	hub := api.NewHub(reader, log, cfg.Origins()...)

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithStore(store),
		app.WithOrder(order),
		app.WithLeaderboardLimit(cfg.LeaderboardLimit),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithAdminToken(cfg.AdminToken),
		app.WithNotifier(hub),
	)
	return svc, hub, nil
}

// buildHandler assembles the router: API, docs and landing site.
func buildHandler(ctx context.Context, cfg *config.Config, svc *app.Service, hub *api.Hub, log logger.Logger) (http.Handler, error) {
	companies, err := dataset.Companies()
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	apiServer := api.NewServer(svc, svc,
		api.WithLogger(log),
		api.WithCORSOrigins(cfg.Origins()),
		api.WithPublicURL(cfg.PublicURL),
		api.WithHub(hub),
		api.WithCompanies(companies),
	)
	r := apiServer.Router()
	apiServer.Register(ctx, r)
	swagger.Register(ctx, r)
	site.Register(ctx, r)
	return r, nil
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
