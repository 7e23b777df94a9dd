package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/qgem/appcenter/backend/go-services/internal/apperr"
	"github.com/qgem/appcenter/backend/go-services/internal/document"
	"github.com/qgem/appcenter/backend/go-services/internal/document/repository"
	"github.com/qgem/appcenter/backend/go-services/pkg/logger"
	"github.com/qgem/appcenter/backend/go-services/pkg/metrics"
)

// Service defines the document operations used by the handler layer. It has
// the repository's contract plus input guards, logging and metrics.
type Service interface {
	repository.DocumentRepository
}

// NewService wraps any repository.
func NewService(repo repository.DocumentRepository) Service {
	return &documentService{repo: repo}
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService() Service {
	return NewService(repository.NewMemoryRepo())
}

// NewMongoService returns a Service backed by a MongoDB collection.
// Caller is responsible for connecting the provider.
func NewMongoService(conn repository.CollectionProvider, collection string) Service {
	return NewService(repository.NewMongoRepo(conn, collection))
}

type documentService struct {
	repo repository.DocumentRepository
}

// observe records the outcome of one operation and logs unexpected failures.
func observe(op, filename string, start time.Time, err error) {
	metrics.StorageDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = apperr.KindOf(err).String()
	}
	metrics.StorageOperations.WithLabelValues(op, result).Inc()

	if err == nil {
		return
	}
	fields := []zap.Field{zap.String("operation", op), zap.String("filename", filename), zap.Error(err)}
	switch apperr.KindOf(err) {
	case apperr.KindNotFound, apperr.KindValidation:
		logger.L().Debug("document operation rejected", fields...)
	default:
		logger.L().Error("document operation failed", fields...)
	}
}

func requireFilename(op, filename string) error {
	if filename == "" {
		return apperr.Validationf(op, filename, "filename is required")
	}
	return nil
}

func (s *documentService) Save(ctx context.Context, filename string, data json.RawMessage) (res *document.SaveResult, err error) {
	defer func(start time.Time) { observe("save", filename, start, err) }(time.Now())
	if err = requireFilename("save", filename); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, apperr.Validationf("save", filename, "data is required")
	}
	res, err = s.repo.Save(ctx, filename, data)
	if err != nil {
		return nil, apperr.Storage("save", filename, err)
	}
	logger.L().Info("document saved", zap.String("filename", filename), zap.String("operation", string(res.Operation)), zap.Int("size", len(data)))
	return res, nil
}

func (s *documentService) Load(ctx context.Context, filename string) (d *document.Document, err error) {
	defer func(start time.Time) { observe("load", filename, start, err) }(time.Now())
	if err = requireFilename("load", filename); err != nil {
		return nil, err
	}
	d, err = s.repo.Load(ctx, filename)
	if err != nil {
		return nil, apperr.Storage("load", filename, err)
	}
	return d, nil
}

func (s *documentService) List(ctx context.Context) (files []document.FileInfo, err error) {
	defer func(start time.Time) { observe("list", "", start, err) }(time.Now())
	files, err = s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Storage("list", "", err)
	}
	if files == nil {
		files = []document.FileInfo{}
	}
	logger.L().Debug("documents listed", zap.Int("count", len(files)))
	return files, nil
}

func (s *documentService) Delete(ctx context.Context, filename string) (err error) {
	defer func(start time.Time) { observe("delete", filename, start, err) }(time.Now())
	if err = requireFilename("delete", filename); err != nil {
		return err
	}
	if err = s.repo.Delete(ctx, filename); err != nil {
		return apperr.Storage("delete", filename, err)
	}
	logger.L().Info("document deleted", zap.String("filename", filename))
	return nil
}
