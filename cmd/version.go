package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Populated at build time with -ldflags "-X .../cmd.version=..."
var version = "dev"

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
