package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

func TestPostgresDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "gc", Password: "pw", Name: "groupcart"}
	assert.Equal(t, "postgres://gc:pw@db:5432/groupcart?sslmode=disable", cfg.PostgresDSN())

	cfg.DSN = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.PostgresDSN())
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "gc.db")
	svc, err := Open(logger.Nop(), Config{Driver: DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	assert.Equal(t, DriverSQLite, svc.Driver())
	require.NoError(t, AutoMigrateAll(svc.DB()))
	require.NoError(t, svc.Ping())
	assert.True(t, svc.DB().Migrator().HasTable("group_order"))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(logger.Nop(), Config{Driver: "oracle"})
	require.Error(t, err)
}
