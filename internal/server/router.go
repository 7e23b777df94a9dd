// Package server assembles the gin engine and runs it with graceful shutdown.
package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/qgem/appcenter/backend/go-services/handlers"
	"github.com/qgem/appcenter/backend/go-services/internal/config"
	"github.com/qgem/appcenter/backend/go-services/internal/document/handler"
	"github.com/qgem/appcenter/backend/go-services/internal/document/service"
	"github.com/qgem/appcenter/backend/go-services/internal/health"
	"github.com/qgem/appcenter/backend/go-services/pkg/metrics"
	"github.com/qgem/appcenter/backend/go-services/pkg/middleware"
)

// Deps are the runtime collaborators the router needs.
type Deps struct {
	Config   *config.Config
	Service  service.Service
	Store    health.Pinger
	Redis    *redis.Client
	Registry *prometheus.Registry
}

// NewRouter builds the gin engine with middleware, API routes, diagnostics
// and optional static files.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(), middleware.CORS())

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && d.Redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(d.Redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	api := r.Group("/", middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	handler.RegisterDocumentRoutes(api, d.Service)

	deps := map[string]health.Pinger{}
	if d.Redis != nil {
		deps["redis"] = health.PingFunc(func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() })
	}
	reporter := health.NewReporter(d.Store, cfg.Server.Environment).WithTimeout(cfg.Server.HealthTimeout)
	handlers.RegisterHealthRoutes(r, reporter, deps)
	handlers.RegisterSwagger(r)

	reg := d.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics.RegisterCollectors(reg)
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	if dir := cfg.Server.PublicDir; dir != "" {
		r.NoRoute(staticFiles(dir))
	}
	return r
}

// staticFiles serves the admin page and other assets for unmatched GETs.
func staticFiles(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "route not found"})
			return
		}
		name := filepath.Clean("/" + strings.TrimPrefix(c.Request.URL.Path, "/"))
		if name == "/" {
			name = "/index.html"
		}
		if st, err := os.Stat(filepath.Join(dir, name)); err != nil || st.IsDir() {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "route not found"})
			return
		}
		c.File(filepath.Join(dir, name))
	}
}
