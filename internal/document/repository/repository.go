package repository

import (
	"context"
	"encoding/json"

	"github.com/qgem/appcenter/backend/go-services/internal/document"
)

// DocumentRepository stores named JSON documents, one per filename.
//
// Save is a single atomic replace-or-insert on the filename. Load and Delete
// return an apperr NotFound error when nothing matches; repeated deletes keep
// reporting not found. List leaves payloads out, orders by most recent
// updatedAt first and returns an empty slice when there is nothing stored.
type DocumentRepository interface {
	Save(ctx context.Context, filename string, data json.RawMessage) (*document.SaveResult, error)
	Load(ctx context.Context, filename string) (*document.Document, error)
	List(ctx context.Context) ([]document.FileInfo, error)
	Delete(ctx context.Context, filename string) error
}
