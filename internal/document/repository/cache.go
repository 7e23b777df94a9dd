package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/qgem/appcenter/backend/go-services/internal/document"
	"github.com/qgem/appcenter/backend/go-services/pkg/logger"
	"github.com/qgem/appcenter/backend/go-services/pkg/metrics"
)

// CachedRepo is a read-through Redis cache in front of another repository.
// Documents are stored as JSON under "<prefix><filename>" with a TTL. Writes
// go to the inner repository first, then bump a per-filename generation and
// drop the cached entry. A fill only lands if the generation it read before
// loading is still current, so a load racing a save cannot cache the old
// payload. Redis failures are logged and bypassed.
type CachedRepo struct {
	inner  DocumentRepository
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCachedRepo wraps inner. Prefix may be empty.
func NewCachedRepo(inner DocumentRepository, client *redis.Client, prefix string, ttl time.Duration) *CachedRepo {
	if prefix == "" {
		prefix = "doc:"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedRepo{inner: inner, client: client, prefix: prefix, ttl: ttl}
}

func (c *CachedRepo) key(filename string) string {
	return c.prefix + filename
}

func (c *CachedRepo) genKey(filename string) string {
	return "gen:" + c.key(filename)
}

var errStaleFill = errors.New("cache generation changed during load")

func (c *CachedRepo) invalidate(ctx context.Context, filename string) {
	gen := c.genKey(filename)
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, gen)
	pipe.Expire(ctx, gen, 2*c.ttl)
	pipe.Del(ctx, c.key(filename))
	if _, err := pipe.Exec(ctx); err != nil {
		logger.L().Warn("cache invalidate failed", zap.String("filename", filename), zap.Error(err))
	}
}

// fill caches d unless a write bumped the generation since gen was read.
func (c *CachedRepo) fill(ctx context.Context, filename, gen string, d *document.Document) {
	b, err := json.Marshal(d)
	if err != nil {
		return
	}
	genKey := c.genKey(filename)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, c.key(filename), b, c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		logger.L().Debug("cache fill skipped, document changed", zap.String("filename", filename))
	default:
		logger.L().Warn("cache write failed", zap.String("filename", filename), zap.Error(err))
	}
}

func (c *CachedRepo) Save(ctx context.Context, filename string, data json.RawMessage) (*document.SaveResult, error) {
	res, err := c.inner.Save(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, filename)
	return res, nil
}

func (c *CachedRepo) Load(ctx context.Context, filename string) (*document.Document, error) {
	b, err := c.client.Get(ctx, c.key(filename)).Bytes()
	switch {
	case err == nil:
		var d document.Document
		if uerr := json.Unmarshal(b, &d); uerr == nil {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return &d, nil
		}
		// unreadable entry: fall through to the store and overwrite it
		metrics.CacheLookups.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		logger.L().Warn("cache read failed", zap.String("filename", filename), zap.Error(err))
	}

	gen, gerr := c.client.Get(ctx, c.genKey(filename)).Result()
	d, err := c.inner.Load(ctx, filename)
	if err != nil {
		return nil, err
	}
	if gerr == nil || errors.Is(gerr, redis.Nil) {
		c.fill(ctx, filename, gen, d)
	}
	return d, nil
}

func (c *CachedRepo) List(ctx context.Context) ([]document.FileInfo, error) {
	return c.inner.List(ctx)
}

func (c *CachedRepo) Delete(ctx context.Context, filename string) error {
	if err := c.inner.Delete(ctx, filename); err != nil {
		return err
	}
	c.invalidate(ctx, filename)
	return nil
}
