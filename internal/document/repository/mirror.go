package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qgem/appcenter/backend/go-services/internal/document"
	"github.com/qgem/appcenter/backend/go-services/pkg/logger"
	"github.com/qgem/appcenter/backend/go-services/pkg/metrics"
)

// Mirror is an object store that keeps a copy of every saved document.
// *storage.MinIOStorage implements it.
type Mirror interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	RemoveFile(ctx context.Context, key string) error
}

// MirroredRepo copies successful saves to a Mirror and removes the copy on
// delete. Mirror failures are logged and counted; the primary store result
// is what the caller sees.
//
// Mirror calls for one filename are serialized, and an upload whose save
// timestamp is older than the last upload or delete for that filename is
// dropped, so concurrent saves cannot leave the older payload mirrored.
// The ordering holds per process only.
type MirroredRepo struct {
	inner  DocumentRepository
	mirror Mirror

	mu    sync.Mutex
	locks map[string]*keyLock
	last  map[string]time.Time
}

type keyLock struct {
	sync.Mutex
	refs int
}

func NewMirroredRepo(inner DocumentRepository, mirror Mirror) *MirroredRepo {
	return &MirroredRepo{
		inner:  inner,
		mirror: mirror,
		locks:  make(map[string]*keyLock),
		last:   make(map[string]time.Time),
	}
}

func (m *MirroredRepo) lock(filename string) func() {
	m.mu.Lock()
	l, ok := m.locks[filename]
	if !ok {
		l = &keyLock{}
		m.locks[filename] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		m.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(m.locks, filename)
		}
		m.mu.Unlock()
	}
}

// claim records ts as the newest mirror write for filename. It reports
// false when a newer write already went out. Callers hold the key lock.
func (m *MirroredRepo) claim(filename string, ts time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.last[filename]; ok && ts.Before(prev) {
		return false
	}
	m.last[filename] = ts
	return true
}

func (m *MirroredRepo) Save(ctx context.Context, filename string, data json.RawMessage) (*document.SaveResult, error) {
	res, err := m.inner.Save(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	unlock := m.lock(filename)
	defer unlock()
	if !m.claim(filename, res.Timestamp) {
		logger.L().Debug("mirror upload skipped, newer copy present", zap.String("filename", filename))
		return res, nil
	}
	if uerr := m.mirror.UploadFile(ctx, filename, bytes.NewReader(data), int64(len(data)), "application/json"); uerr != nil {
		metrics.MirrorFailures.WithLabelValues("upload").Inc()
		logger.L().Warn("mirror upload failed", zap.String("filename", filename), zap.Error(uerr))
	}
	return res, nil
}

func (m *MirroredRepo) Load(ctx context.Context, filename string) (*document.Document, error) {
	return m.inner.Load(ctx, filename)
}

func (m *MirroredRepo) List(ctx context.Context) ([]document.FileInfo, error) {
	return m.inner.List(ctx)
}

func (m *MirroredRepo) Delete(ctx context.Context, filename string) error {
	if err := m.inner.Delete(ctx, filename); err != nil {
		return err
	}
	unlock := m.lock(filename)
	defer unlock()
	m.claim(filename, time.Now().UTC())
	if rerr := m.mirror.RemoveFile(ctx, filename); rerr != nil {
		metrics.MirrorFailures.WithLabelValues("remove").Inc()
		logger.L().Warn("mirror remove failed", zap.String("filename", filename), zap.Error(rerr))
	}
	return nil
}
