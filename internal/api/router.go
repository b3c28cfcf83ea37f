// Package api wires together all HTTP routes of the dashboard backend.
//
// Route groups:
//   - /health and /version are unauthenticated operational endpoints.
//   - /trpc/:procedure carries every dashboard mutation and requires a session.
//   - /api/v1/breadcrumbs/... resolves navigation trails; anonymous callers get
//     an empty trail rather than a 401 so the page shell can still render.
//
// Prometheus metrics are served on a separate port by cmd/server, not here.
package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/keydash/dashboard/internal/api/rpc"
	"github.com/keydash/dashboard/internal/auth"
	"github.com/keydash/dashboard/internal/breadcrumb"
	"github.com/keydash/dashboard/internal/config"
	"github.com/keydash/dashboard/internal/dashboard"
	"github.com/keydash/dashboard/internal/middleware"
)

// Version is the build version, overridden at link time with
// -ldflags "-X github.com/keydash/dashboard/internal/api.Version=...".
var Version = "dev"

// Deps are the collaborators the router needs. Limiter may be nil to disable
// rate limiting.
type Deps struct {
	DB          *sql.DB
	Procedures  *dashboard.Procedures
	Breadcrumbs *breadcrumb.Resolver
	Sessions    middleware.SessionLookup
	Limiter     middleware.Limiter
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	if cfg.Telemetry.Tracing.Enabled {
		router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig(), cfg.Security.TLS.Enabled))
	router.Use(middleware.CORSMiddleware(cfg.Security.CORS))
	if deps.Limiter != nil {
		router.Use(middleware.RateLimitMiddleware(deps.Limiter))
	}

	router.GET("/health", healthCheckHandler(deps.DB))
	router.GET("/version", versionHandler())

	trpc := router.Group("/trpc")
	trpc.Use(middleware.AuthMiddleware(cfg, deps.Sessions))
	trpc.POST("/:procedure", newRegistry(deps.Procedures).Dispatch)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.OptionalAuthMiddleware(cfg, deps.Sessions))
	v1.GET("/breadcrumbs/apis/:apiId/keys/:keyAuthId/new", newKeyBreadcrumbsHandler(deps.Breadcrumbs))

	return router
}

// newRegistry registers every dashboard procedure under its RPC name.
func newRegistry(p *dashboard.Procedures) *rpc.Registry {
	reg := rpc.NewRegistry()
	rpc.Register(reg, p.UpdateAPIIPWhitelist)
	rpc.Register(reg, p.UpdateKeyName)
	rpc.Register(reg, p.DisconnectPermissionFromRole)
	rpc.Register(reg, p.ConnectPermissionToRole)
	rpc.Register(reg, p.UpdateRole)
	rpc.Register(reg, p.UpdatePermission)
	rpc.Register(reg, p.ToggleWebhook)
	return reg
}

// newKeyBreadcrumbsHandler serves the trail for the "create key" page.
func newKeyBreadcrumbsHandler(resolver *breadcrumb.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := breadcrumb.WithMemo(c.Request.Context())
		caller := auth.CallerFromContext(ctx)

		trail, err := resolver.NewKeyTrail(ctx, caller, c.Param("apiId"), c.Param("keyAuthId"))
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve breadcrumbs"})
			return
		}
		if trail == nil {
			trail = []breadcrumb.Crumb{}
		}
		c.JSON(http.StatusOK, gin.H{"breadcrumbs": trail})
	}
}

// healthCheckHandler reports database connectivity.
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

// versionHandler returns the build and API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}
