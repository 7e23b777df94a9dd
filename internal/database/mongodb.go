package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/qgem/appcenter/backend/go-services/internal/apperr"
	"github.com/qgem/appcenter/backend/go-services/internal/config"
	"github.com/qgem/appcenter/backend/go-services/pkg/logger"
)

// DefaultDatabase is used when neither MONGODB_DATABASE nor the URI path names one.
const DefaultDatabase = "qgem"

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// Connector owns the single MongoDB client of the process. It is created
// once at startup and handed to the repository and the health reporter.
type Connector struct {
	cfg      config.MongoDBConfig
	connect  func(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error)
	backoff  time.Duration
	mu       sync.RWMutex
	client   *mongo.Client
	database *mongo.Database
}

func NewConnector(cfg config.MongoDBConfig) *Connector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ConnectAttempts < 1 {
		cfg.ConnectAttempts = 1
	}
	return &Connector{cfg: cfg, connect: ConnectMongo, backoff: time.Second}
}

// databaseName picks the configured database, then the URI path, then the default.
func databaseName(cfg config.MongoDBConfig, cs *connstring.ConnString) string {
	if cfg.Database != "" {
		return cfg.Database
	}
	if cs != nil && cs.Database != "" {
		return cs.Database
	}
	return DefaultDatabase
}

// Connect validates the connection string, dials and pings the store.
// Calling it again while connected is a no-op.
func (c *Connector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return nil
	}

	if c.cfg.URI == "" {
		return apperr.E(apperr.KindConfiguration, "connect", "", errors.New("MONGODB_URI is not set"))
	}
	cs, err := connstring.ParseAndValidate(c.cfg.URI)
	if err != nil {
		return apperr.E(apperr.KindConfiguration, "connect", "", fmt.Errorf("invalid MONGODB_URI: %w", err))
	}

	// retry/backoff to tolerate startup races with the database container
	backoff := c.backoff
	var client *mongo.Client
	for attempt := 1; attempt <= c.cfg.ConnectAttempts; attempt++ {
		client, err = c.connect(ctx, c.cfg.URI, c.cfg.Timeout)
		if err == nil {
			break
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, c.cfg.ConnectAttempts, err)
		if attempt < c.cfg.ConnectAttempts {
			select {
			case <-ctx.Done():
				return apperr.E(apperr.KindConnection, "connect", "", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	if err != nil {
		return apperr.E(apperr.KindConnection, "connect", "", err)
	}

	c.client = client
	c.database = client.Database(databaseName(c.cfg, cs))
	logger.Infof("connected to MongoDB database %q", c.database.Name())
	return nil
}

// Database returns the active database handle.
func (c *Connector) Database() (*mongo.Database, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.database == nil {
		return nil, apperr.E(apperr.KindNotConnected, "database", "", errors.New("call Connect first"))
	}
	return c.database, nil
}

// Collection returns a handle on the named collection of the active database.
func (c *Connector) Collection(name string) (*mongo.Collection, error) {
	db, err := c.Database()
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// Ping checks the store is reachable, bounded by the configured timeout.
func (c *Connector) Ping(ctx context.Context) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client == nil {
		return apperr.E(apperr.KindNotConnected, "ping", "", errors.New("call Connect first"))
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		return apperr.E(apperr.KindConnection, "ping", "", err)
	}
	return nil
}

// Disconnect releases the client. Safe to call when never connected.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Disconnect(ctx)
	c.client = nil
	c.database = nil
	if err != nil {
		return fmt.Errorf("mongo disconnect: %w", err)
	}
	logger.Infof("disconnected from MongoDB")
	return nil
}

// Attach wraps an already connected client, e.g. one talking to a mock deployment.
func Attach(client *mongo.Client, database string, timeout time.Duration) *Connector {
	c := NewConnector(config.MongoDBConfig{Database: database, Timeout: timeout})
	c.client = client
	c.database = client.Database(database)
	return c
}
