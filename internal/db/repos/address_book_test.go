package repos

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/db"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/db/models"
)

// AddressBookTestSuite runs the repository against an in-memory sqlite database
type AddressBookTestSuite struct {
	suite.Suite
	db   *gorm.DB
	ctx  context.Context
	repo *AddressBookRepository
	runs int
}

func (s *AddressBookTestSuite) SetupTest() {
	name := strings.ReplaceAll(s.T().Name(), "/", "_")
	gdb, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err, "Failed to create in-memory database")
	require.NoError(s.T(), db.Migrate(gdb), "Failed to run database migrations")

	s.db = gdb
	s.repo = NewAddressBookRepository(gdb)
	s.ctx = context.Background()
	s.runs = 0
}

func (s *AddressBookTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	if err == nil && sqlDB != nil {
		_ = sqlDB.Close()
	}
}

func (s *AddressBookTestSuite) saveRun(label string, status models.DeploymentStatus, contracts map[string]string, order ...string) *models.Deployment {
	s.runs++
	d := &models.Deployment{
		RunID:  fmt.Sprintf("run-%d", s.runs),
		Label:  label,
		Mode:   "fresh",
		Plan:   "fresh-market",
		Status: status,
	}
	for i, name := range order {
		d.Contracts = append(d.Contracts, models.Contract{Position: i, Name: name, Handle: contracts[name]})
		d.Steps = append(d.Steps, models.StepRecord{Position: i, StepID: "deploy-" + name, Outputs: 1})
	}
	s.Require().NoError(s.repo.SaveRun(s.ctx, d))
	return d
}

func (s *AddressBookTestSuite) TestSaveAndLookup() {
	s.saveRun("local", models.DeploymentStatusCompleted, map[string]string{"Pool": "0x01", "WETH": "0x02"}, "Pool", "WETH")

	handle, ok, err := s.repo.Lookup(s.ctx, "local", "Pool")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("0x01", handle)

	_, ok, err = s.repo.Lookup(s.ctx, "local", "AaveOracle")
	s.Require().NoError(err)
	s.False(ok)

	_, ok, err = s.repo.Lookup(s.ctx, "other", "Pool")
	s.Require().NoError(err)
	s.False(ok, "unknown label has no contracts")
}

func (s *AddressBookTestSuite) TestLatestCompletedRunWins() {
	s.saveRun("local", models.DeploymentStatusCompleted, map[string]string{"Pool": "0x01"}, "Pool")
	s.saveRun("local", models.DeploymentStatusCompleted, map[string]string{"Pool": "0x02"}, "Pool")
	s.saveRun("local", models.DeploymentStatusFailed, map[string]string{"Pool": "0x03"}, "Pool")

	handle, ok, err := s.repo.Lookup(s.ctx, "local", "Pool")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("0x02", handle, "failed runs are never attached to")

	latest, err := s.repo.Latest(s.ctx, "local")
	s.Require().NoError(err)
	s.Equal("run-2", latest.RunID)
}

func (s *AddressBookTestSuite) TestListContractsKeepsOrder() {
	order := []string{"Deployer", "DAI", "Pool", "AaveOracle"}
	contracts := map[string]string{"Deployer": "0x0d", "DAI": "0x0a", "Pool": "0x0b", "AaveOracle": "0x0c"}
	s.saveRun("local", models.DeploymentStatusCompleted, contracts, order...)

	listed, err := s.repo.ListContracts(s.ctx, "local")
	s.Require().NoError(err)
	s.Require().Len(listed, 4)
	for i, c := range listed {
		s.Equal(order[i], c.Name)
		s.Equal(contracts[c.Name], c.Handle)
	}

	_, err = s.repo.ListContracts(s.ctx, "missing")
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *AddressBookTestSuite) TestGetByRunID() {
	saved := s.saveRun("local", models.DeploymentStatusCompleted, map[string]string{"B": "0x02", "A": "0x01"}, "B", "A")

	got, err := s.repo.GetByRunID(s.ctx, saved.RunID)
	s.Require().NoError(err)
	s.Equal("local", got.Label)
	s.Require().Len(got.Contracts, 2)
	s.Equal("B", got.Contracts[0].Name)
	s.Require().Len(got.Steps, 2)
	s.Equal("deploy-A", got.Steps[1].StepID)

	_, err = s.repo.GetByRunID(s.ctx, "nope")
	s.ErrorIs(err, gorm.ErrRecordNotFound)
}

func (s *AddressBookTestSuite) TestListDeployments() {
	s.saveRun("local", models.DeploymentStatusCompleted, nil)
	s.saveRun("local", models.DeploymentStatusFailed, nil)
	s.saveRun("ci", models.DeploymentStatusCompleted, nil)

	all, err := s.repo.ListDeployments(s.ctx, "local", nil)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("run-2", all[0].RunID, "newest first")

	failed := models.DeploymentStatusFailed
	onlyFailed, err := s.repo.ListDeployments(s.ctx, "local", &models.ListOptions{Status: &failed})
	s.Require().NoError(err)
	s.Require().Len(onlyFailed, 1)
	s.Equal(models.DeploymentStatusFailed, onlyFailed[0].Status)

	paged, err := s.repo.ListDeployments(s.ctx, "local", &models.ListOptions{Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(paged, 1)
	s.Equal("run-1", paged[0].RunID)
}

func (s *AddressBookTestSuite) TestDuplicateRunID() {
	s.saveRun("local", models.DeploymentStatusCompleted, nil)
	err := s.repo.SaveRun(s.ctx, &models.Deployment{RunID: "run-1", Label: "local", Mode: "fresh"})
	s.Error(err)
}

func TestAddressBookRepository(t *testing.T) {
	suite.Run(t, new(AddressBookTestSuite))
}
