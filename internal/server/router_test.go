package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qgem/appcenter/backend/go-services/internal/config"
	"github.com/qgem/appcenter/backend/go-services/internal/document/service"
	"github.com/qgem/appcenter/backend/go-services/internal/health"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Environment:  "test",
			MaxBodyBytes: 10 << 20,
		},
		MongoDB: config.MongoDBConfig{Timeout: time.Second},
	}
}

func storeDown() health.Pinger {
	return health.PingFunc(func(context.Context) error { return errors.New("no reachable servers") })
}

func storeUp() health.Pinger {
	return health.PingFunc(func(context.Context) error { return nil })
}

func request(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var rd *strings.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	var req *http.Request
	if rd != nil {
		req = httptest.NewRequest(method, path, rd)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthReportsBrokenStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(Deps{Config: testConfig(), Service: service.NewMemoryService(), Store: storeDown()})

	w := request(r, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rep health.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.True(t, rep.Success)
	assert.False(t, rep.Database.Connected)
	assert.Equal(t, health.StatusError, rep.Database.Status)

	w = request(r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = request(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_HealthPingBoundedIndependentlyOfConnectTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.MongoDB.Timeout = 10 * time.Second
	cfg.Server.HealthTimeout = 50 * time.Millisecond
	hung := health.PingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	r := NewRouter(Deps{Config: cfg, Service: service.NewMemoryService(), Store: hung})

	start := time.Now()
	w := request(r, http.MethodGet, "/api/health", "")
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, http.StatusOK, w.Code)
	var rep health.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.False(t, rep.Database.Connected)
}

func TestRouter_RejectsBadFilenameBeforeStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewMemoryService()
	r := NewRouter(Deps{Config: testConfig(), Service: svc, Store: storeUp()})

	w := request(r, http.MethodPost, "/api/save-data/level.txt", `{"a":1}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	files, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRouter_RoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(Deps{Config: testConfig(), Service: service.NewMemoryService(), Store: storeUp()})

	w := request(r, http.MethodPost, "/api/save-data/world.json", `{"tiles":[1,2,3]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = request(r, http.MethodGet, "/api/load-data/world.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tiles":[1,2,3]}`, w.Body.String())
}

func TestRouter_BodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.Server.MaxBodyBytes = 32
	r := NewRouter(Deps{Config: cfg, Service: service.NewMemoryService(), Store: storeUp()})

	w := request(r, http.MethodPost, "/api/save-data/big.json", `{"blob":"`+strings.Repeat("z", 100)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.1, Burst: 1}
	r := NewRouter(Deps{Config: cfg, Service: service.NewMemoryService(), Store: storeUp()})

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/list-files", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(r, http.MethodGet, "/api/list-files", "").Code)
}

func TestRouter_Metrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(Deps{Config: testConfig(), Service: service.NewMemoryService(), Store: storeUp()})

	request(r, http.MethodGet, "/api/health", "")
	w := request(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "appcenter_store_up 1")
}

func TestRouter_StaticFiles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>admin</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	cfg := testConfig()
	cfg.Server.PublicDir = dir
	r := NewRouter(Deps{Config: cfg, Service: service.NewMemoryService(), Store: storeUp()})

	w := request(r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin")

	w = request(r, http.MethodGet, "/app.js", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = request(r, http.MethodGet, "/missing.css", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(r, http.MethodGet, "/../../etc/passwd", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
