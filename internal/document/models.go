package document

import (
	"encoding/json"
	"time"
)

// Operation reports whether a save inserted a new document or replaced one.
type Operation string

const (
	OperationCreated Operation = "created"
	OperationUpdated Operation = "updated"
)

// Document is a named JSON payload. Data is kept as raw JSON so the payload
// round-trips byte for byte apart from whitespace compaction.
type Document struct {
	Filename  string          `json:"filename" bson:"filename"`
	Data      json.RawMessage `json:"data" bson:"-"`
	Size      int64           `json:"size" bson:"size"`
	CreatedAt time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// FileInfo is a listing entry; the payload is left out.
type FileInfo struct {
	Filename  string    `json:"filename" bson:"filename"`
	Size      int64     `json:"size" bson:"size"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Info returns the listing view of d.
func (d *Document) Info() FileInfo {
	return FileInfo{Filename: d.Filename, Size: d.Size, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

// SaveResult is returned by a successful save.
type SaveResult struct {
	Filename  string    `json:"filename"`
	Operation Operation `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}
