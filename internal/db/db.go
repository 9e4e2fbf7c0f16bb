// Package db provides the address book database connection
package db

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/db/models"
)

// Database configuration constants
const (
	// DriverSQLite stores the address book in a local file
	DriverSQLite = "sqlite"
	// DriverPostgres stores the address book in a shared PostgreSQL database
	DriverPostgres = "postgres"

	// DefaultPath is the default sqlite file
	DefaultPath = "testenv.db"
	// DefaultHost is the default database host
	DefaultHost = "localhost"
	// DefaultPort is the default database port
	DefaultPort = 5432
	// DefaultUser is the default database user
	DefaultUser = "postgres"
	// DefaultPassword is the default database password
	DefaultPassword = "postgres"
	// DefaultDBName is the default database name
	DefaultDBName     = "postgres"
	DefaultSSLEnabled = false
)

// Options represents database connection configuration options
type Options struct {
	Driver     string
	Path       string
	Host       string
	User       string
	Password   string
	DBName     string
	Port       int
	SSLEnabled *bool
	LogLevel   logger.LogLevel
}

// New opens the address book database with the given options and migrates it
func New(opts Options) (*gorm.DB, error) {
	opts = setDefaults(opts)

	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverSQLite:
		dialector = sqlite.Open(opts.Path)
	case DriverPostgres:
		dialector = postgres.Open(dsn(opts))
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", opts.Driver)
	}

	// Configure custom logger to ignore record not found errors
	newLogger := logger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the address book tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Deployment{},
		&models.Contract{},
		&models.StepRecord{},
	)
}

func dsn(opts Options) string {
	sslMode := "disable"
	if opts.SSLEnabled != nil && *opts.SSLEnabled {
		sslMode = "require"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		opts.Host, opts.User, opts.Password, opts.DBName, opts.Port, sslMode)
}

func setDefaults(opts Options) Options {
	if opts.Driver == "" {
		opts.Driver = DriverSQLite
	}
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.User == "" {
		opts.User = DefaultUser
	}
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	if opts.DBName == "" {
		opts.DBName = DefaultDBName
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.SSLEnabled == nil {
		sslMode := DefaultSSLEnabled
		opts.SSLEnabled = &sslMode
	}
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	return opts
}
