package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store drivers.
const (
	StoreSQLite   = "sqlite3"
	StorePostgres = "pgx"
	StoreFile     = "file"
	StoreMemory   = "memory"
)

type Config struct {
	App struct {
		Name     string     `envconfig:"APP_NAME" default:"Tally"`
		DataDir  string     `envconfig:"DATA_DIR"`
		LogLevel slog.Level `envconfig:"LOG_LEVEL" default:"info"`
	}

	Store struct {
		Driver string `envconfig:"STORE_DRIVER" default:"sqlite3"`
		// Path is the sqlite file or the JSON directory, relative to DataDir unless absolute.
		Path string `envconfig:"STORE_PATH"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"tally"`
	}

	Import struct {
		Timezone string `envconfig:"IMPORT_TIMEZONE" default:"Local"`
	}

	Export struct {
		Dir string `envconfig:"EXPORT_DIR"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// StorePath returns the sqlite file or JSON directory for the configured driver.
func (c *Config) StorePath() string {
	p := c.Store.Path
	if p == "" {
		switch c.Store.Driver {
		case StoreFile:
			p = "data"
		default:
			p = "tally.db"
		}
	}

	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(c.App.DataDir, p)
}

func (c *Config) ExportDir() string {
	if c.Export.Dir != "" {
		return c.Export.Dir
	}

	return filepath.Join(c.App.DataDir, "invoices")
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Import.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Import.Timezone, err)
	}

	return loc, nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	switch cfg.Store.Driver {
	case StoreSQLite, StorePostgres, StoreFile, StoreMemory:
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if cfg.App.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		cfg.App.DataDir = filepath.Join(home, ".tally")
	}

	return &cfg, nil
}
