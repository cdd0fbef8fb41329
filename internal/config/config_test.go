package config_test

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "Tally", cfg.App.Name)
	assert.Equal(t, slog.LevelInfo, cfg.App.LogLevel)
	assert.Equal(t, config.StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(dir, "tally.db"), cfg.StorePath())
	assert.Equal(t, filepath.Join(dir, "invoices"), cfg.ExportDir())
}

func TestLoad_FileStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("STORE_DRIVER", "file")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.App.LogLevel)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.StorePath())
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("STORE_DRIVER", "redis")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestConfig_ConnectionString(t *testing.T) {
	var cfg config.Config
	cfg.DB.User = "u"
	cfg.DB.Password = "p"
	cfg.DB.Host = "db"
	cfg.DB.Port = 5433
	cfg.DB.Name = "tally"

	assert.Equal(t, "postgres://u:p@db:5433/tally?sslmode=disable", cfg.ConnectionString())
}

func TestConfig_Location(t *testing.T) {
	var cfg config.Config
	cfg.Import.Timezone = "UTC"

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	cfg.Import.Timezone = "Not/AZone"
	_, err = cfg.Location()
	assert.Error(t, err)
}
