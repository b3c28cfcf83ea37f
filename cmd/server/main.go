// Package main is the entry point for the dashboard backend binary.
// It dispatches three subcommands (serve, migrate, version) via a switch on
// os.Args. The serve command applies pending migrations on startup.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/keydash/dashboard/internal/api"
	"github.com/keydash/dashboard/internal/audit"
	"github.com/keydash/dashboard/internal/auth"
	"github.com/keydash/dashboard/internal/breadcrumb"
	"github.com/keydash/dashboard/internal/config"
	"github.com/keydash/dashboard/internal/dashboard"
	"github.com/keydash/dashboard/internal/db"
	"github.com/keydash/dashboard/internal/db/repositories"
	"github.com/keydash/dashboard/internal/jobs"
	"github.com/keydash/dashboard/internal/middleware"
	"github.com/keydash/dashboard/internal/safego"
	"github.com/keydash/dashboard/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	switch command {
	case "serve":
		return serve(cfg)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down>", os.Args[0])
		}
		return runMigrations(cfg, os.Args[2])
	case "version":
		fmt.Printf("keydash dashboard %s\n", api.Version)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, version", command)
	}
}

// background collects everything serve must stop on shutdown.
type background struct {
	stops []func()
}

func (b *background) add(stop func()) { b.stops = append(b.stops, stop) }

func (b *background) shutdown() {
	for i := len(b.stops) - 1; i >= 0; i-- {
		b.stops[i]()
	}
}

func serve(cfg *config.Config) error {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := auth.ValidateJWTSecret(); err != nil {
		return fmt.Errorf("security configuration error: %w", err)
	}

	bg := &background{}
	defer bg.shutdown()

	tracing, err := telemetry.SetupTracing(context.Background(), cfg.Telemetry, api.Version)
	if err != nil {
		return fmt.Errorf("failed to initialise tracing: %w", err)
	}
	if tracing != nil {
		slog.Info("tracing enabled", "endpoint", cfg.Telemetry.Tracing.Endpoint, "sample_ratio", cfg.Telemetry.Tracing.SampleRatio)
		bg.add(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(ctx); err != nil {
				slog.Warn("tracing shutdown failed", "error", err)
			}
		})
	}

	slog.Info("connecting to database",
		"host", cfg.Database.Host, "port", cfg.Database.Port,
		"user", cfg.Database.User, "dbname", cfg.Database.Name, "sslmode", cfg.Database.SSLMode)
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	bg.add(func() { _ = database.Close() })

	telemetry.StartDBStatsCollector(database.DB)

	if err := db.RunMigrations(database.DB, "up"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if version, dirty, err := db.GetMigrationVersion(database.DB); err != nil {
		slog.Warn("failed to read migration version", "error", err)
	} else {
		slog.Info("database schema ready", "version", version, "dirty", dirty)
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = connectRedis(cfg.Redis.URL)
		if err != nil {
			return err
		}
		bg.add(func() { _ = rdb.Close() })
	}

	sink, err := newAuditSink(cfg, database.DB, rdb, bg)
	if err != nil {
		return err
	}

	var limiter middleware.Limiter
	if cfg.Security.RateLimiting.Enabled {
		rlCfg := middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Security.RateLimiting.RequestsPerMinute,
			BurstSize:         cfg.Security.RateLimiting.Burst,
		}
		if rdb != nil {
			limiter = middleware.NewRedisLimiter(rdb, rlCfg)
		} else {
			mem := middleware.NewMemoryLimiter(rlCfg)
			bg.add(mem.Stop)
			limiter = mem
		}
		slog.Info("rate limiting enabled", "backend", limiter.Backend())
	}

	var cache breadcrumb.APICache
	if rdb != nil {
		cache = breadcrumb.NewRedisAPICache(rdb, cfg.Redis.BreadcrumbTTL)
	}

	sessions := repositories.NewSessionRepository(database)

	if cfg.Jobs.ReaperEnabled {
		reaper := jobs.NewSessionReaper(sessions, cfg.Jobs.ReaperInterval)
		safego.Go("session-reaper", func() { reaper.Start(context.Background()) })
		bg.add(reaper.Stop)
	}

	if cfg.Telemetry.Metrics.Enabled {
		metricsSrv := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Telemetry.Metrics.PrometheusPort),
			Handler:      metricsMux(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		safego.Go("metrics-server", func() {
			slog.Info("starting Prometheus metrics server", "addr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "error", err)
			}
		})
		bg.add(func() { _ = metricsSrv.Close() })
	}

	router := api.NewRouter(cfg, api.Deps{
		DB:          database.DB,
		Procedures:  dashboard.New(database, sink, cfg.Support.Email),
		Breadcrumbs: breadcrumb.NewResolver(repositories.NewAPIRepository(database), cache),
		Sessions:    sessions,
		Limiter:     limiter,
	})

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	safego.Go("http-server", func() {
		slog.Info("starting server", "addr", server.Addr, "base_url", cfg.Server.BaseURL, "tls", cfg.Security.TLS.Enabled)
		var err error
		if cfg.Security.TLS.Enabled {
			err = server.ListenAndServeTLS(cfg.Security.TLS.CertFile, cfg.Security.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("server stopped gracefully")
	return nil
}

func connectRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("connected to redis", "addr", opts.Addr, "db", opts.DB)
	return rdb, nil
}

// newAuditSink builds the recorder over the audit_logs store. When
// audit.database_dsn is set the store uses its own connection pool.
func newAuditSink(cfg *config.Config, primary *sql.DB, rdb *redis.Client, bg *background) (audit.Sink, error) {
	if !cfg.Audit.Enabled {
		slog.Warn("audit logging disabled; mutations will not be recorded")
		return audit.Discard, nil
	}

	store := repositories.NewAuditRepository(db.Wrap(primary))
	if cfg.Audit.DatabaseDSN != "" {
		auditDB, err := db.Connect(cfg.Audit.DatabaseDSN, cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to audit database: %w", err)
		}
		bg.add(func() { _ = auditDB.Close() })
		store = repositories.NewAuditRepository(auditDB)
	}

	var clients audit.Clients
	if rdb != nil {
		clients.Redis = rdb
	}
	if url := natsURL(cfg.Audit.Shippers); url != "" {
		nc, err := nats.Connect(url, nats.Name(cfg.Telemetry.ServiceName+"-audit"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		bg.add(func() {
			if err := nc.Drain(); err != nil {
				slog.Warn("nats drain failed", "error", err)
			}
		})
		clients.NATS = nc
	}
	shipper, err := audit.NewMultiShipper(cfg.Audit.Shippers, clients)
	if err != nil {
		return nil, fmt.Errorf("failed to configure audit shippers: %w", err)
	}
	bg.add(func() {
		if err := shipper.Close(); err != nil {
			slog.Warn("failed to close audit shippers", "error", err)
		}
	})
	slog.Info("audit logging enabled", "shippers", shipper.Len())
	return audit.NewRecorder(store, shipper), nil
}

// natsURL returns the URL of the first enabled nats shipper.
func natsURL(shippers []config.AuditShipperConfig) string {
	for _, s := range shippers {
		if s.Enabled && s.Type == "nats" && s.NATS != nil {
			return s.NATS.URL
		}
	}
	return ""
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func runMigrations(cfg *config.Config, direction string) error {
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	slog.Info("running migrations", "direction", direction)
	if err := db.RunMigrations(database.DB, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := db.GetMigrationVersion(database.DB)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	slog.Info("migration completed", "version", version, "dirty", dirty)
	return nil
}
