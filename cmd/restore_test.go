package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qgem/appcenter/backend/go-services/internal/apperr"
	"github.com/qgem/appcenter/backend/go-services/internal/document"
	"github.com/qgem/appcenter/backend/go-services/internal/document/service"
)

type objects map[string]string

func (o objects) DownloadFile(_ context.Context, filename string) (io.ReadCloser, error) {
	body, ok := o[filename]
	if !ok {
		return nil, errors.New("dial tcp: connection refused")
	}
	return io.NopCloser(bytes.NewBufferString(body)), nil
}

func TestRestore_SavesMirroredDocument(t *testing.T) {
	ctx := context.Background()
	svc := service.NewMemoryService()
	src := objects{"save.json": "{\n  \"level\": 3\n}\n"}

	res, err := restore(ctx, src, svc, "save.json")
	require.NoError(t, err)
	assert.Equal(t, document.OperationCreated, res.Operation)

	d, err := svc.Load(ctx, "save.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":3}`, string(d.Data))
}

func TestRestore_Errors(t *testing.T) {
	ctx := context.Background()
	svc := service.NewMemoryService()

	_, err := restore(ctx, objects{}, svc, "gone.json")
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))

	_, err = restore(ctx, objects{"bad.json": "not json"}, svc, "bad.json")
	assert.True(t, apperr.IsValidation(err))
}
