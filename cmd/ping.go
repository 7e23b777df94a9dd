package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qgem/appcenter/backend/go-services/internal/config"
	"github.com/qgem/appcenter/backend/go-services/internal/database"
)

func NewPingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Connect to MongoDB and report whether it answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			conn := database.NewConnector(cfg.MongoDB)
			if err := conn.Connect(ctx); err != nil {
				return err
			}
			defer func() { _ = conn.Disconnect(context.Background()) }()

			if err := conn.Ping(ctx); err != nil {
				return err
			}
			db, err := conn.Database()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: database %s reachable\n", db.Name())
			return nil
		},
	}
}
