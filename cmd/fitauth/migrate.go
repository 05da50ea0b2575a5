package main

import (
	"context"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/fitgoal/fitAuth/store/postgres"
)

var migrateFunc = postgres.Migrate

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Run database migrations",
		Long:      `Apply all pending migrations (up, the default) or roll back the most recent one (down).`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE:      runMigrate,
	}
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	return cmd
}

func parseDirection(args []string) (postgres.Direction, error) {
	if len(args) == 0 {
		return postgres.Up, nil
	}
	switch args[0] {
	case "up":
		return postgres.Up, nil
	case "down":
		return postgres.Down, nil
	default:
		return postgres.Up, oops.Code("INVALID_ARGUMENT").Errorf("unknown migration direction %q", args[0])
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dir, err := parseDirection(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.Printf("Running migrations (%s)...\n", dir)
	if err := migrateFunc(ctx, cfg.Database.URL, dir); err != nil {
		return oops.Code("MIGRATION_FAILED").With("direction", dir.String()).Wrap(err)
	}
	cmd.Println("Migrations completed successfully")
	return nil
}
