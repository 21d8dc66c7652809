package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m3rciful/fontbot/core/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host: "db", Port: "5432", User: "bot", Password: "p@ss/word", Name: "fontbot", SSLMode: "disable",
	})
	assert.Equal(t, "postgres://bot:p%40ss%2Fword@db:5432/fontbot?sslmode=disable", dsn)
}

func TestEmbeddedMigrations(t *testing.T) {
	files := listMigrationFiles(migrationsFS)
	assert.Equal(t, []string{"0001_bot_cursor.up.sql"}, files)
	assert.Equal(t, uint64(1), parseVersion(files[0]))
	assert.Equal(t, files, selectApplied(files, 0, 1))
	assert.Empty(t, selectApplied(files, 1, 1))
}
