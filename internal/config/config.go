// Package config loads the provisioner configuration from .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/constants"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Probe kinds used in external mode
const (
	ProbeAddressBook = "addressbook"
	ProbeFile        = "file"
	ProbePulumi      = "pulumi"
)

// Database holds address-book connection settings.
type Database struct {
	Driver   string `env:"TESTENV_DB_DRIVER" envDefault:"sqlite"`
	Path     string `env:"TESTENV_DB_PATH" envDefault:"testenv.db"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME" envDefault:"postgres"`
	SSLMode  string `env:"DB_SSL_MODE" envDefault:"disable"`
}

// Config is the runtime configuration of one provisioning run.
type Config struct {
	Fork          string `env:"FORK"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	CatalogPath   string `env:"TESTENV_CATALOG"`
	NodeURL       string `env:"TESTENV_NODE_URL"`
	Label         string `env:"TESTENV_LABEL" envDefault:"local"`
	Probe         string `env:"TESTENV_PROBE" envDefault:"addressbook"`
	ProbeFile     string `env:"TESTENV_PROBE_FILE"`
	PulumiStack   string `env:"TESTENV_PULUMI_STACK"`
	PulumiWorkDir string `env:"TESTENV_PULUMI_WORKDIR" envDefault:"."`

	DB Database
}

// Load reads an optional .env file and parses the environment into a Config.
// The result is not validated; callers apply their overrides first and then call Validate.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver: %q", c.DB.Driver)
	}

	switch c.Probe {
	case ProbeAddressBook:
	case ProbeFile:
		if c.ProbeFile == "" {
			return fmt.Errorf("probe %q requires %s", c.Probe, constants.EnvProbeFile)
		}
	case ProbePulumi:
		if c.PulumiStack == "" {
			return fmt.Errorf("probe %q requires %s", c.Probe, constants.EnvPulumiStack)
		}
	default:
		return fmt.Errorf("unsupported probe: %q", c.Probe)
	}

	if c.Label == "" {
		return fmt.Errorf("label cannot be empty")
	}
	return nil
}

// External reports whether the run attaches to a forked environment.
func (c *Config) External() bool {
	return c.Fork != ""
}
