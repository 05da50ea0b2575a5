package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	body, err := fs.ReadFile(migrationsFS, migrationsDir+"/00001_create_accounts.sql")
	require.NoError(t, err)

	sqlText := string(body)
	assert.Contains(t, sqlText, "-- +goose Up")
	assert.Contains(t, sqlText, "-- +goose Down")
	assert.Contains(t, sqlText, "ON accounts (lower(email))")
}

func stubGoose(t *testing.T, up, down func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error) {
	t.Helper()
	origUp, origDown := gooseUpContext, gooseDownContext
	t.Cleanup(func() {
		gooseUpContext, gooseDownContext = origUp, origDown
	})
	gooseUpContext, gooseDownContext = up, down
}

func TestMigrateDBDirection(t *testing.T) {
	var calls []string
	record := func(name string) func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
			calls = append(calls, name+":"+dir)
			return nil
		}
	}
	stubGoose(t, record("up"), record("down"))

	require.NoError(t, MigrateDB(context.Background(), nil, Up))
	require.NoError(t, MigrateDB(context.Background(), nil, Down))

	assert.Equal(t, []string{"up:migrations", "down:migrations"}, calls)
}

func TestMigrateDBWrapsFailure(t *testing.T) {
	fail := func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("relation exists")
	}
	stubGoose(t, fail, fail)

	err := MigrateDB(context.Background(), nil, Up)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "relation exists"))
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "up", Up.String())
	assert.Equal(t, "down", Down.String())
}
