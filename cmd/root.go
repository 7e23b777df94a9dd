// Package cmd holds the appcenter command line.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qgem/appcenter/backend/go-services/pkg/logger"
)

// NewRootCommand represents the base command. Without a subcommand it serves.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "appcenter",
		Short:         "Stores named JSON documents for game clients in MongoDB",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(viper.GetString("LOG_LEVEL"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("port", "", "HTTP listen port, overrides PORT and SERVER_PORT")
	_ = viper.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))
	_ = viper.BindPFlag("PORT", flags.Lookup("port"))

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewPingCommand())
	cmd.AddCommand(NewRestoreCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		logger.Fatalf("appcenter: %v", err)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
}
