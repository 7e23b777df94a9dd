package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/qgem/appcenter/backend/go-services/internal/apperr"
	"github.com/qgem/appcenter/backend/go-services/internal/config"
	"github.com/qgem/appcenter/backend/go-services/internal/document"
	"github.com/qgem/appcenter/backend/go-services/internal/document/service"
	"github.com/qgem/appcenter/backend/go-services/internal/storage"
)

func NewRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <filename>",
		Short: "Copy a mirrored document from MinIO back into MongoDB",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			if err := document.ValidateFilename(filename); err != nil {
				return err
			}
			mcfg := storage.LoadMinIOConfig()
			if !mcfg.Enabled() {
				return apperr.E(apperr.KindConfiguration, "restore", filename, errors.New("MINIO_ENDPOINT is not set"))
			}
			mirror, err := storage.NewMinIOStorage(mcfg)
			if err != nil {
				return apperr.E(apperr.KindConnection, "restore", filename, err)
			}

			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			conn, store, err := connectStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Disconnect(context.Background()) }()

			res, err := restore(ctx, mirror, service.NewService(store), filename)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s at %s\n", res.Filename, res.Operation, res.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"))
			return nil
		},
	}
}

// Downloader reads a mirrored document.
type Downloader interface {
	DownloadFile(ctx context.Context, filename string) (io.ReadCloser, error)
}

// restore copies one mirrored object into the store through the service.
func restore(ctx context.Context, src Downloader, svc service.Service, filename string) (*document.SaveResult, error) {
	rc, err := src.DownloadFile(ctx, filename)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, apperr.NotFound("restore", filename)
		}
		return nil, apperr.Storage("restore", filename, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, apperr.Storage("restore", filename, err)
	}
	data, err := document.NormalizePayload(raw)
	if err != nil {
		return nil, err
	}
	return svc.Save(ctx, filename, data)
}
