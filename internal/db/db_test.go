package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/db/models"
)

func TestNewSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.db")
	gdb, err := New(Options{Driver: DriverSQLite, Path: path, LogLevel: logger.Silent})
	require.NoError(t, err)

	for _, model := range []interface{}{&models.Deployment{}, &models.Contract{}, &models.StepRecord{}} {
		assert.True(t, gdb.Migrator().HasTable(model))
	}
	for _, field := range []string{"CreatedAt", "Label", "Status", "DeletedAt"} {
		assert.True(t, gdb.Migrator().HasIndex(&models.Deployment{}, field), "deployments.%s is not indexed", field)
	}
	assert.True(t, gdb.Migrator().HasColumn(&models.Deployment{}, "created_at"))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestNewUnsupportedDriver(t *testing.T) {
	_, err := New(Options{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestSetDefaults(t *testing.T) {
	opts := setDefaults(Options{})
	assert.Equal(t, DriverSQLite, opts.Driver)
	assert.Equal(t, DefaultPath, opts.Path)
	assert.Equal(t, DefaultPort, opts.Port)
	require.NotNil(t, opts.SSLEnabled)
	assert.False(t, *opts.SSLEnabled)
	assert.Equal(t, logger.Warn, opts.LogLevel)

	enabled := true
	assert.Contains(t, dsn(setDefaults(Options{Driver: DriverPostgres, SSLEnabled: &enabled})), "sslmode=require")
	assert.Contains(t, dsn(opts), "host=localhost user=postgres")
}
