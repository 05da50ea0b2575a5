package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the fitauth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fitauth",
		Short: "fitAuth - account registration and session authentication",
		Long: `fitAuth serves registration, login, logout and password reset for the
fitgoal API, and validates bearer tokens on every protected request.

Configuration is read from defaults, then the --config YAML file, then
FITAUTH_* environment variables, then command-line flags.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Printf("fitauth %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
