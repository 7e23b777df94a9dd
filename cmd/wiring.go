package cmd

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/qgem/appcenter/backend/go-services/internal/config"
	"github.com/qgem/appcenter/backend/go-services/internal/database"
	"github.com/qgem/appcenter/backend/go-services/internal/document/repository"
	"github.com/qgem/appcenter/backend/go-services/internal/storage"
	"github.com/qgem/appcenter/backend/go-services/pkg/logger"
)

// connectStore connects to MongoDB and prepares the document collection.
func connectStore(ctx context.Context, cfg *config.Config) (*database.Connector, *repository.MongoRepo, error) {
	conn := database.NewConnector(cfg.MongoDB)
	if err := conn.Connect(ctx); err != nil {
		return nil, nil, err
	}
	repo := repository.NewMongoRepo(conn, cfg.MongoDB.Collection)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warnf("ensure indexes on %s: %v", cfg.MongoDB.Collection, err)
	}
	return conn, repo, nil
}

// connectRedis returns a pinged client, or nil when Redis is not configured
// or unreachable. Redis only backs optional features.
func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr() == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr(), Password: cfg.Password, DB: cfg.DB})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		logger.Warnf("redis %s unreachable, cache and shared rate limit disabled: %v", cfg.Addr(), err)
		_ = client.Close()
		return nil
	}
	logger.Infof("connected to redis %s", cfg.Addr())
	return client
}

// openMirror returns the MinIO mirror, or nil when it is not configured or
// cannot be reached.
func openMirror() *storage.MinIOStorage {
	mcfg := storage.LoadMinIOConfig()
	if !mcfg.Enabled() {
		return nil
	}
	m, err := storage.NewMinIOStorage(mcfg)
	if err != nil {
		logger.Warnf("minio mirror disabled: %v", err)
		return nil
	}
	logger.Infof("mirroring documents to minio bucket %s", mcfg.Bucket)
	return m
}

// buildRepository layers the optional mirror and cache over the store.
func buildRepository(base repository.DocumentRepository, cfg *config.Config, rdb *redis.Client, mirror repository.Mirror) repository.DocumentRepository {
	repo := base
	if mirror != nil {
		repo = repository.NewMirroredRepo(repo, mirror)
	}
	if rdb != nil && cfg.Cache.Enabled {
		repo = repository.NewCachedRepo(repo, rdb, "doc:", cfg.Cache.TTL)
	}
	return repo
}
