package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Report store backends.
const (
	ReportStoreFile      = "file"
	ReportStorePostgres  = "postgres"
	ReportStoreDatastore = "datastore"
)

type envConfig struct {
	APP_PORT      string `env:"APP_PORT" envDefault:"8082"`
	APP_NAME      string `env:"APP_NAME" envDefault:"InfoBi"`
	LOG_FILE_PATH string `env:"LOG_FILE_PATH"`
	LOG_LEVEL     string `env:"LOG_LEVEL" envDefault:"info"`

	PERIOD_FIELD string `env:"PERIOD_FIELD" envDefault:"Esercizio"`
	REPORTS_PATH string `env:"REPORTS_PATH" envDefault:"./reports"`
	REPORT_STORE string `env:"REPORT_STORE" envDefault:"file"`

	DB_HOST              string        `env:"DB_HOST" envDefault:"localhost"`
	DB_PORT              string        `env:"DB_PORT" envDefault:"5432"`
	DB_USER              string        `env:"DB_USER" envDefault:"postgres"`
	DB_PASSWORD          string        `env:"DB_PASSWORD"`
	DB_NAME              string        `env:"DB_NAME" envDefault:"infobi"`
	DB_SSL_MODE          string        `env:"DB_SSL_MODE" envDefault:"disable"`
	DB_MAX_OPEN_CONNS    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DB_MAX_IDLE_CONNS    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DB_CONN_MAX_LIFETIME time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	GCP_PROJECT_ID string `env:"GCP_PROJECT_ID"`

	ELASTIC_URL   string `env:"ELASTIC_URL"`
	ELASTIC_INDEX string `env:"ELASTIC_INDEX" envDefault:"reports"`

	EXPORT_TEMPLATE_PATH string `env:"EXPORT_TEMPLATE_PATH"`

	VIEWPORT_ROW_HEIGHT int `env:"VIEWPORT_ROW_HEIGHT" envDefault:"36"`
	VIEWPORT_OVERSCAN   int `env:"VIEWPORT_OVERSCAN" envDefault:"20"`
}

// DefaultEnvConfig holds the loaded environment configuration.
var DefaultEnvConfig envConfig

// LoadEnvConfig reads an optional .env file and parses the environment into DefaultEnvConfig.
func LoadEnvConfig(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	switch cfg.REPORT_STORE {
	case ReportStoreFile, ReportStorePostgres, ReportStoreDatastore:
	default:
		return fmt.Errorf("unknown REPORT_STORE %q", cfg.REPORT_STORE)
	}
	DefaultEnvConfig = cfg
	return nil
}
