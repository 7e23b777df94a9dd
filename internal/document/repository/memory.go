package repository

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/qgem/appcenter/backend/go-services/internal/apperr"
	"github.com/qgem/appcenter/backend/go-services/internal/document"
)

// MemoryRepo is an in-process repository used by unit tests and the dev
// server. It keeps the same invariants as the Mongo repository; the mutex
// plays the role of the store's per-document atomicity.
type MemoryRepo struct {
	mu    sync.RWMutex
	now   func() time.Time
	store map[string]*document.Document
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{now: time.Now, store: make(map[string]*document.Document)}
}

func clone(d *document.Document) *document.Document {
	out := *d
	out.Data = append(json.RawMessage(nil), d.Data...)
	return &out
}

func (m *MemoryRepo) Save(_ context.Context, filename string, data json.RawMessage) (*document.SaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC().Truncate(time.Millisecond)
	payload := append(json.RawMessage(nil), data...)

	d, ok := m.store[filename]
	if !ok {
		m.store[filename] = &document.Document{
			Filename:  filename,
			Data:      payload,
			Size:      int64(len(payload)),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return &document.SaveResult{Filename: filename, Operation: document.OperationCreated, Timestamp: now}, nil
	}
	// updatedAt strictly increases even when two writes land in the same millisecond
	if !now.After(d.UpdatedAt) {
		now = d.UpdatedAt.Add(time.Millisecond)
	}
	d.Data = payload
	d.Size = int64(len(payload))
	d.UpdatedAt = now
	return &document.SaveResult{Filename: filename, Operation: document.OperationUpdated, Timestamp: now}, nil
}

func (m *MemoryRepo) Load(_ context.Context, filename string) (*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[filename]; ok {
		return clone(d), nil
	}
	return nil, apperr.NotFound("load", filename)
}

func (m *MemoryRepo) List(_ context.Context) ([]document.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]document.FileInfo, 0, len(m.store))
	for _, d := range m.store {
		out = append(out, d.Info())
	}
	SortByRecent(out)
	return out, nil
}

func (m *MemoryRepo) Delete(_ context.Context, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[filename]; !ok {
		return apperr.NotFound("delete", filename)
	}
	delete(m.store, filename)
	return nil
}

// SortByRecent orders entries by updatedAt descending, then filename.
func SortByRecent(files []document.FileInfo) {
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].UpdatedAt.Equal(files[j].UpdatedAt) {
			return files[i].UpdatedAt.After(files[j].UpdatedAt)
		}
		return files[i].Filename < files[j].Filename
	})
}
