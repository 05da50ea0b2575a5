package postgres

import (
	"context"
	"database/sql"
	"embed"

	// Registers the "pgx" database/sql driver used by goose.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Seams for tests; goose needs a live database.
var (
	gooseUpContext   = goose.UpContext
	gooseDownContext = goose.DownContext
)

// Direction selects which way Migrate moves the schema.
type Direction int

const (
	Up Direction = iota
	// Down rolls back the most recent migration only.
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Migrate opens dsn with the pgx stdlib driver and applies the embedded
// migrations in the given direction.
func Migrate(ctx context.Context, dsn string, dir Direction) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "open database").Wrap(err)
	}
	defer db.Close()

	return MigrateDB(ctx, db, dir)
}

// MigrateDB applies the embedded migrations on an open database.
func MigrateDB(ctx context.Context, db *sql.DB, dir Direction) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("pgx"); err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "set dialect").Wrap(err)
	}

	run := gooseUpContext
	if dir == Down {
		run = gooseDownContext
	}
	if err := run(ctx, db, migrationsDir); err != nil {
		return oops.Code("MIGRATION_FAILED").With("direction", dir.String()).Wrap(err)
	}
	return nil
}
