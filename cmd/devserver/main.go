// Command devserver runs the document API on an in-memory store, for local
// frontend work without MongoDB.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/qgem/appcenter/backend/go-services/internal/config"
	"github.com/qgem/appcenter/backend/go-services/internal/document/service"
	"github.com/qgem/appcenter/backend/go-services/internal/health"
	"github.com/qgem/appcenter/backend/go-services/internal/server"
	"github.com/qgem/appcenter/backend/go-services/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	if p := os.Getenv("DEV_SERVER_PORT"); p != "" {
		cfg.Server.Port = p
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := server.NewRouter(server.Deps{
		Config:  cfg,
		Service: service.NewMemoryService(),
		Store:   health.PingFunc(func(context.Context) error { return nil }),
	})

	logger.Warnf("devserver: documents are kept in memory and lost on exit")
	if err := server.Run(ctx, cfg.Server, router); err != nil {
		logger.Fatalf("devserver: %v", err)
	}
}
