package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qgem/appcenter/backend/go-services/internal/health"
	"github.com/qgem/appcenter/backend/go-services/pkg/logger"
)

// RegisterHealthRoutes registers the diagnostic endpoints.
//   - GET /api/health  always 200, store status in the body
//   - GET /health      plain liveness
//   - GET /ready       503 unless the store and every extra dependency answer
func RegisterHealthRoutes(r gin.IRouter, rep *health.Reporter, deps map[string]health.Pinger) {
	r.GET("/api/health", func(c *gin.Context) {
		report := rep.Report(c.Request.Context())
		if !report.Database.Connected {
			logger.Warnf("health check: database unavailable: %s", report.Database.Error)
		} else {
			logger.Debugf("health check requested")
		}
		c.JSON(http.StatusOK, report)
	})

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	r.GET("/ready", func(c *gin.Context) {
		ctx := c.Request.Context()
		ready := true
		status := map[string]bool{}

		status["storage"] = rep.Check(ctx).Connected
		ready = ready && status["storage"]

		for _, name := range names {
			pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			status[name] = deps[name].Ping(pctx) == nil
			cancel()
			ready = ready && status[name]
		}

		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": status})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": status})
	})
}
