package document

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/qgem/appcenter/backend/go-services/internal/apperr"
)

// Extension every filename must carry.
const Extension = ".json"

// MaxFilenameLength bounds the unique key.
const MaxFilenameLength = 255

// ValidateFilename checks the syntactic rules for a document key.
func ValidateFilename(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return apperr.Validationf("validate", filename, "filename is required")
	}
	if !strings.HasSuffix(filename, Extension) || len(filename) == len(Extension) {
		return apperr.Validationf("validate", filename, "filename must end in %s", Extension)
	}
	if len(filename) > MaxFilenameLength {
		return apperr.Validationf("validate", filename, "filename longer than %d bytes", MaxFilenameLength)
	}
	if strings.ContainsAny(filename, `/\`) || strings.IndexFunc(filename, unicode.IsControl) >= 0 {
		return apperr.Validationf("validate", filename, "filename contains invalid characters")
	}
	return nil
}

// NormalizePayload checks raw is a non-empty JSON object or array and
// returns it compacted.
func NormalizePayload(raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, apperr.Validationf("validate", "", "a JSON body is required")
	}
	if !json.Valid(trimmed) {
		return nil, apperr.Validationf("validate", "", "body is not valid JSON")
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return nil, apperr.Validationf("validate", "", "body must be a JSON object or array")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, apperr.Validationf("validate", "", "body is not valid JSON: %v", err)
	}
	return json.RawMessage(buf.Bytes()), nil
}
