// Package commands implements the testenv command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/config"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/db"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/db/repos"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/logger"
)

// flag names
const (
	flagEnvFile     = "env-file"
	flagLogLevel    = "log-level"
	flagFork        = "fork"
	flagLabel       = "label"
	flagCatalog     = "catalog"
	flagNodeURL     = "node-url"
	flagDBDriver    = "db-driver"
	flagDBPath      = "db-path"
	flagProbe       = "probe"
	flagProbeFile   = "probe-file"
	flagPulumiStack = "pulumi-stack"
	flagOutput      = "output"
	flagExport      = "export"
	flagFormat      = "format"
	flagListen      = "listen"
	flagAccounts    = "accounts"
	flagSeed        = "seed"
)

// Output formats
const (
	outputTable = "table"
	outputJSON  = "json"
)

// state is shared by the commands of one invocation.
type state struct {
	envFile string
	cfg     *config.Config
}

// NewRootCmd builds the testenv command tree.
func NewRootCmd() *cobra.Command {
	st := &state{}

	cmd := &cobra.Command{
		Use:   "testenv",
		Short: "Provision a lending-market test environment",
		Long: `testenv deploys a complete lending market on a simulated chain, or attaches to
one that is already deployed, and records the resulting address book.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var files []string
			if st.envFile != "" {
				files = append(files, st.envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}

			// Flag > env > default
			overrideString(cmd, flagLogLevel, &cfg.LogLevel)
			overrideString(cmd, flagFork, &cfg.Fork)
			overrideString(cmd, flagLabel, &cfg.Label)
			overrideString(cmd, flagCatalog, &cfg.CatalogPath)
			overrideString(cmd, flagNodeURL, &cfg.NodeURL)
			overrideString(cmd, flagDBDriver, &cfg.DB.Driver)
			overrideString(cmd, flagDBPath, &cfg.DB.Path)
			overrideString(cmd, flagProbe, &cfg.Probe)
			overrideString(cmd, flagProbeFile, &cfg.ProbeFile)
			overrideString(cmd, flagPulumiStack, &cfg.PulumiStack)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetLevel(cfg.LogLevel)
			st.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&st.envFile, flagEnvFile, "", "Path of the .env file to load (default .env)")
	cmd.PersistentFlags().String(flagLogLevel, "", "Log level (env: LOG_LEVEL)")
	cmd.PersistentFlags().String(flagCatalog, "", "Market catalog YAML (env: TESTENV_CATALOG)")
	cmd.PersistentFlags().String(flagLabel, "", "Deployment label in the address book (env: TESTENV_LABEL)")
	cmd.PersistentFlags().String(flagDBDriver, "", "Address book driver, sqlite or postgres (env: TESTENV_DB_DRIVER)")
	cmd.PersistentFlags().String(flagDBPath, "", "Address book sqlite file (env: TESTENV_DB_PATH)")

	cmd.AddCommand(newProvisionCmd(st))
	cmd.AddCommand(newPlanCmd(st))
	cmd.AddCommand(newNodeCmd(st))
	cmd.AddCommand(newBookCmd(st))

	return cmd
}

// overrideString replaces *dst with the value of the named flag when it was set.
func overrideString(cmd *cobra.Command, name string, dst *string) {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return
	}
	*dst = f.Value.String()
}

// dbOptions maps the configuration to database options
func dbOptions(cfg *config.Config) db.Options {
	ssl := cfg.DB.SSLMode != "" && cfg.DB.SSLMode != "disable"
	return db.Options{
		Driver:     cfg.DB.Driver,
		Path:       cfg.DB.Path,
		Host:       cfg.DB.Host,
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		DBName:     cfg.DB.Name,
		Port:       cfg.DB.Port,
		SSLEnabled: &ssl,
	}
}

// openBook opens the address book; the returned func closes it
func openBook(cfg *config.Config) (*repos.AddressBookRepository, func(), error) {
	gdb, err := db.New(dbOptions(cfg))
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return repos.NewAddressBookRepository(gdb), closeFn, nil
}

func checkOutput(format string) error {
	switch format {
	case outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("invalid output format %q, expected %s or %s", format, outputTable, outputJSON)
	}
}
