package main

import (
	"github.com/spf13/cobra"
)

// configPath is the --config flag value, shared by all subcommands.
var configPath string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "portier",
		Short:         "Authenticating reverse proxy.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file.")

	cmd.AddCommand(
		serveCmd(),
		hashpwCmd(),
		userCmd(),
	)

	return cmd
}
