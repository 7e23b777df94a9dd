package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qgem/appcenter/backend/go-services/internal/config"
	"github.com/qgem/appcenter/backend/go-services/internal/document/repository"
	"github.com/qgem/appcenter/backend/go-services/internal/document/service"
	"github.com/qgem/appcenter/backend/go-services/internal/server"
	"github.com/qgem/appcenter/backend/go-services/pkg/logger"
)

func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// runServe connects the store and serves until SIGINT or SIGTERM. A bad
// connection string or an unreachable store is returned before listening.
func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel)
	logger.Infof("config loaded: mongo=%v redis=%v cache=%v rate_limit=%v public_dir=%q",
		cfg.MongoDB.URI != "", cfg.Redis.Addr() != "", cfg.Cache.Enabled, cfg.RateLimit.Enabled, cfg.Server.PublicDir)

	conn, store, err := connectStore(ctx, cfg)
	if err != nil {
		return err
	}
	closers := []server.Closer{conn.Disconnect}

	rdb := connectRedis(ctx, cfg.Redis)
	if rdb != nil {
		closers = append(closers, func(context.Context) error { return rdb.Close() })
	}

	var mirror repository.Mirror
	if m := openMirror(); m != nil {
		mirror = m
	}

	svc := service.NewService(buildRepository(store, cfg, rdb, mirror))
	router := server.NewRouter(server.Deps{
		Config:  cfg,
		Service: svc,
		Store:   conn,
		Redis:   rdb,
	})
	return server.Run(ctx, cfg.Server, router, closers...)
}
