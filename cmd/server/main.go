// Package main is the entry point for the trailkeeper server binary.
// It dispatches its subcommands (serve, migrate, system-event, version) with a simple switch on
// os.Args. The serve command runs migrations on startup so freshly deployed containers never
// need a separate migration step.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/trailkeeper/trailkeeper/internal/api"
	"github.com/trailkeeper/trailkeeper/internal/audit"
	"github.com/trailkeeper/trailkeeper/internal/auth"
	"github.com/trailkeeper/trailkeeper/internal/config"
	"github.com/trailkeeper/trailkeeper/internal/db"
	"github.com/trailkeeper/trailkeeper/internal/db/repositories"
	"github.com/trailkeeper/trailkeeper/internal/middleware"
	"github.com/trailkeeper/trailkeeper/internal/safego"
	"github.com/trailkeeper/trailkeeper/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if command == "version" {
		fmt.Printf("trailkeeper %s\n", api.Version)
		return nil
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
	case "system-event":
		if len(os.Args) < 4 {
			return fmt.Errorf("usage: %s system-event <org-slug> <EVENT_NAME> [key=value ...]", os.Args[0])
		}
		return recordSystemEvent(cfg, os.Args[2], os.Args[3], os.Args[4:])
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, system-event, version", command)
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

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	slog.Info("connected to database", "host", cfg.Database.Host, "name", cfg.Database.Name)

	telemetry.StartDBStatsCollector(database)

	if err := db.RunMigrations(database, "up"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if version, dirty, err := db.GetMigrationVersion(database); err != nil {
		slog.Warn("failed to get migration version", "error", err)
	} else {
		slog.Info("database schema ready", "version", version, "dirty", dirty)
	}

	writer, shipper, err := newWriter(cfg, database)
	if err != nil {
		return err
	}
	defer shipper.Close()

	var limiter middleware.Limiter
	if cfg.Security.RateLimiting.Enabled {
		limiter, err = newLimiter(cfg)
		if err != nil {
			return err
		}
		if m, ok := limiter.(*middleware.MemoryLimiter); ok {
			defer m.Stop()
		}
	}

	if cfg.Telemetry.Metrics.Enabled {
		safego.Go("metrics-server", func() { serveMetrics(cfg.Telemetry.Metrics.Port) })
	}

	router := api.NewRouter(cfg, database, api.Dependencies{
		Writer:  writer,
		Limiter: limiter,
	})

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", server.Addr, "version", api.Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
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

// newWriter builds the audit writer with the configured shippers attached
func newWriter(cfg *config.Config, database *sql.DB) (*audit.Writer, *audit.MultiShipper, error) {
	shipper, err := audit.NewMultiShipper(audit.ShipperConfigsFromConfig(cfg.Audit))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure audit shippers: %w", err)
	}

	writer := audit.NewWriter(nil, audit.NewRepositoryTransactor(repositories.NewTxManager(db.Extend(database))))
	writer.SetSystemActorLabel(cfg.Audit.SystemActorLabel)
	if shipper.Len() > 0 {
		writer.SetShipper(shipper)
		slog.Info("audit log shipping enabled", "shippers", shipper.Len())
	}
	return writer, shipper, nil
}

func runMigrations(cfg *config.Config, direction string) error {
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	slog.Info("running migrations", "direction", direction)
	if err := db.RunMigrations(database, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	slog.Info("migration completed", "version", version, "dirty", dirty)
	return nil
}

// recordSystemEvent writes an entry attributed to the system actor, for operator actions taken
// outside the API (e.g. disabling SSO for an organization during an incident).
func recordSystemEvent(cfg *config.Config, orgSlug, eventName string, args []string) error {
	data := make(map[string]interface{}, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return fmt.Errorf("invalid data argument %q (want key=value)", arg)
		}
		data[k] = v
	}

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	writer, shipper, err := newWriter(cfg, database)
	if err != nil {
		return err
	}
	defer shipper.Close()

	event, err := writer.Registry().GetEventID(eventName)
	if err != nil {
		return err
	}

	ctx := context.Background()
	org, err := repositories.NewOrganizationRepository(database).GetBySlug(ctx, orgSlug)
	if err != nil {
		return fmt.Errorf("failed to load organization: %w", err)
	}
	if org == nil {
		return fmt.Errorf("organization %q not found", orgSlug)
	}

	entry, err := writer.CreateSystemAuditEntry(ctx, org, org.ID, event, data)
	if err != nil {
		return err
	}
	slog.Info("recorded system audit entry", "entry_id", entry.ID, "event", eventName, "organization", org.Slug)
	return nil
}

// newLimiter returns a Redis-backed limiter shared by all replicas when redis.addr is set, and
// an in-process limiter otherwise
func newLimiter(cfg *config.Config) (middleware.Limiter, error) {
	rlCfg := middleware.RateLimitConfigFromConfig(cfg.Security.RateLimiting)
	if cfg.Redis.Addr == "" {
		return middleware.NewMemoryLimiter(rlCfg), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// The limiter fails open, so an unreachable Redis at startup is not fatal.
		slog.Warn("redis unreachable, rate limiting will fail open until it recovers", "addr", cfg.Redis.Addr, "error", err)
	}
	slog.Info("using redis rate limiter", "addr", cfg.Redis.Addr)
	return middleware.NewRedisLimiter(client, rlCfg), nil
}

// serveMetrics exposes /metrics on a dedicated port, off the public API listener
func serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	slog.Info("starting Prometheus metrics server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server error", "error", err)
	}
}
