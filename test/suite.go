package test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/constants"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/db"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/db/repos"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/environment"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/node"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/orchestrator"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/transport"
)

// DefaultTestTimeout bounds the provisioning run of a suite.
const DefaultTestTimeout = 30 * time.Second

// DefaultLabel is the address-book label suites record their run under.
const DefaultLabel = "suite"

// Suite provisions the environment once before its tests run. Embedding suites
// may set the exported configuration fields before SetupSuite runs, typically
// from their own SetupSuite before calling this one.
type Suite struct {
	suite.Suite

	// Mode overrides the mode selected by FORK
	Mode environment.Mode

	// Probe is used in external mode
	Probe orchestrator.Probe

	// UseNode provisions through a test node over HTTP instead of in-process
	UseNode bool

	// Label names the run in the address book
	Label string

	// Result of the provisioning run
	Env      *environment.Result
	Snapshot *registry.Snapshot

	// Chain is the simulated chain of fresh mode
	Chain *transport.Simulated
	Node  *node.Server

	// Database components
	DB          *gorm.DB
	AddressBook *repos.AddressBookRepository

	ctx        context.Context
	cancelFunc context.CancelFunc
}

// SetupSuite opens a file-based address book and provisions the environment.
func (s *Suite) SetupSuite() {
	s.ctx, s.cancelFunc = context.WithTimeout(context.Background(), DefaultTestTimeout)

	if s.Mode == "" {
		s.Mode = environment.ModeFromFork(os.Getenv(constants.EnvFork))
	}
	if s.Label == "" {
		s.Label = DefaultLabel
	}
	if s.Mode == environment.ModeExternal && s.Probe == nil {
		s.Require().FailNow("external mode requires a probe", "set Suite.Probe or unset %s", constants.EnvFork)
	}

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(s.T().TempDir(), "testenv.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err, "failed to open address book")
	s.Require().NoError(db.Migrate(gdb), "failed to migrate address book")
	s.DB = gdb
	s.AddressBook = repos.NewAddressBookRepository(gdb)

	opts := []environment.Option{
		environment.WithLabel(s.Label),
		environment.WithSink(environment.NewAddressBookSink(s.AddressBook)),
	}
	switch {
	case s.Mode == environment.ModeExternal:
		opts = append(opts, environment.WithProbe(s.Probe))
	case s.UseNode:
		var tr *transport.HTTP
		s.Node, tr = StartNode(s.T())
		s.Chain = s.Node.Chain()
		opts = append(opts, environment.WithTransport(tr))
	default:
		s.Chain = transport.NewSimulated()
		opts = append(opts, environment.WithTransport(s.Chain))
	}

	s.Env, err = environment.NewSelector(s.Mode, opts...).Run(s.ctx)
	s.Require().NoError(err, "failed to provision the %s environment", s.Mode)
	s.Snapshot = s.Env.Snapshot
}

// TearDownSuite releases the address book.
func (s *Suite) TearDownSuite() {
	if s.DB != nil {
		sqlDB, err := s.DB.DB()
		if err == nil && sqlDB != nil {
			_ = sqlDB.Close()
		}
	}
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
}

// Context returns the suite's context, canceled when the suite is torn down.
func (s *Suite) Context() context.Context {
	return s.ctx
}

// Resolve returns the handle registered under name and fails the test when there
// is none.
func (s *Suite) Resolve(name registry.Name) registry.Handle {
	h, err := s.Snapshot.Resolve(name)
	s.Require().NoError(err)
	return h
}
