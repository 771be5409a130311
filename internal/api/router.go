// Package api wires together all HTTP routes of the audit service.
//
// Route grouping:
//   - /health, /ready and /version are unauthenticated probes.
//   - Everything under /api/0/ requires authentication (session JWT, organization API key or
//     integration installation token) and is rate limited per principal. Organization-scoped
//     routes additionally check the caller's scopes in that organization.
package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trailkeeper/trailkeeper/internal/analytics"
	"github.com/trailkeeper/trailkeeper/internal/api/installations"
	"github.com/trailkeeper/trailkeeper/internal/api/organizations"
	"github.com/trailkeeper/trailkeeper/internal/audit"
	"github.com/trailkeeper/trailkeeper/internal/config"
	tkdb "github.com/trailkeeper/trailkeeper/internal/db"
	"github.com/trailkeeper/trailkeeper/internal/db/repositories"
	"github.com/trailkeeper/trailkeeper/internal/middleware"
	"github.com/trailkeeper/trailkeeper/internal/services"
)

// Version is the build version reported by /version. Set at link time with
// -ldflags "-X github.com/trailkeeper/trailkeeper/internal/api.Version=..."
var Version = "dev"

// Dependencies are the long-lived collaborators the caller (cmd/server) constructs
type Dependencies struct {
	Writer   *audit.Writer
	Limiter  middleware.Limiter // nil disables rate limiting
	Notifier services.InstallationNotifier
	Recorder analytics.Recorder
	Logger   *slog.Logger
}

// NewRouter creates the HTTP handler for the service
func NewRouter(cfg *config.Config, db *sql.DB, deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Notifier == nil {
		deps.Notifier = services.NewLogNotifier(deps.Logger)
	}
	if deps.Recorder == nil {
		deps.Recorder = analytics.NewLogRecorder(deps.Logger)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.LoggerMiddleware(deps.Logger))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db))
	router.GET("/version", versionHandler(cfg))

	// Initialize repositories
	sqlxDB := tkdb.Extend(db)
	userRepo := repositories.NewUserRepository(db)
	apiKeyRepo := repositories.NewAPIKeyRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)
	teamRepo := repositories.NewTeamRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	appRepo := repositories.NewSentryAppRepository(sqlxDB)
	txm := repositories.NewTxManager(sqlxDB)

	installationService := services.NewInstallationService(appRepo, services.NewRepositoryTransactor(txm), orgRepo, deps.Writer, deps.Notifier, deps.Recorder)
	installationHandlers := installations.NewHandlers(appRepo, orgRepo, installationService)
	orgHandlers := organizations.NewHandlers(orgRepo, teamRepo, projectRepo, auditRepo, txm, deps.Writer)

	api0 := router.Group("/api/0")
	api0.Use(middleware.AuthMiddleware(userRepo, apiKeyRepo, appRepo))
	if deps.Limiter != nil {
		api0.Use(middleware.RateLimitMiddleware(deps.Limiter))
	}
	{
		installationHandlers.RegisterRoutes(api0)
		orgHandlers.RegisterRoutes(api0)
	}

	return router
}

// healthCheckHandler is the liveness probe: the process is up and the database answers
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler additionally requires the schema to be migrated and clean, so a deploy
// whose migration failed half-way is taken out of rotation.
func readinessHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		version, dirty, err := tkdb.GetMigrationVersion(db)
		if err != nil || dirty {
			checks["migrations"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "schema not migrated",
			})
			return
		}
		checks["migrations"] = version

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func versionHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "0",
			"service":     cfg.Telemetry.ServiceName,
		})
	}
}
