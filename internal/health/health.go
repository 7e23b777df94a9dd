// Package health composes process and store status into one diagnostic
// payload. Reporting never fails; store trouble is described in the result.
package health

import (
	"context"
	"time"

	"github.com/qgem/appcenter/backend/go-services/pkg/metrics"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"

	DefaultTimeout = 2 * time.Second
)

// Pinger is satisfied by database.Connector.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type ServerStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Uptime      float64   `json:"uptime"`
	Environment string    `json:"environment"`
}

type DatabaseStatus struct {
	Connected bool   `json:"connected"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Report is the /api/health body.
type Report struct {
	Success  bool           `json:"success"`
	Server   ServerStatus   `json:"server"`
	Database DatabaseStatus `json:"database"`
}

// Reporter builds health reports for one process.
type Reporter struct {
	pinger      Pinger
	environment string
	started     time.Time
	timeout     time.Duration
	now         func() time.Time
}

// NewReporter returns a Reporter whose uptime counts from now.
// A nil pinger reports the store as not configured.
func NewReporter(pinger Pinger, environment string) *Reporter {
	return &Reporter{
		pinger:      pinger,
		environment: environment,
		started:     time.Now(),
		timeout:     DefaultTimeout,
		now:         time.Now,
	}
}

// WithTimeout bounds each store ping.
func (r *Reporter) WithTimeout(d time.Duration) *Reporter {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Check pings the store and updates the store-up gauge.
func (r *Reporter) Check(ctx context.Context) DatabaseStatus {
	if r.pinger == nil {
		metrics.StoreUp.Set(0)
		return DatabaseStatus{Status: StatusError, Error: "database not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.pinger.Ping(ctx); err != nil {
		metrics.StoreUp.Set(0)
		return DatabaseStatus{Status: StatusError, Error: err.Error()}
	}
	metrics.StoreUp.Set(1)
	return DatabaseStatus{Connected: true, Status: StatusOK}
}

// Report composes uptime, timestamp, environment and store status.
func (r *Reporter) Report(ctx context.Context) Report {
	now := r.now()
	return Report{
		Success: true,
		Server: ServerStatus{
			Status:      StatusOK,
			Timestamp:   now.UTC(),
			Uptime:      now.Sub(r.started).Seconds(),
			Environment: r.environment,
		},
		Database: r.Check(ctx),
	}
}
