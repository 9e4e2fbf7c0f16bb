package environment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/db"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/db/models"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/db/repos"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/market"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/orchestrator"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/probe"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/transport"
)

func TestModeFromFork(t *testing.T) {
	assert.Equal(t, ModeFresh, ModeFromFork(""))
	assert.Equal(t, ModeExternal, ModeFromFork("main"))
	assert.Equal(t, ModeExternal, ModeFromFork("0"))

	m, err := ParseMode("external")
	require.NoError(t, err)
	assert.Equal(t, ModeExternal, m)
	_, err = ParseMode("forked")
	assert.Error(t, err)
}

func TestSelectorFresh(t *testing.T) {
	tr := transport.NewSimulated()
	s := NewSelector(ModeFresh, WithTransport(tr), WithLabel("unit"))

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Snapshot)
	assert.Equal(t, ModeFresh, res.Mode)
	assert.Equal(t, "unit", res.Label)
	assert.NotEmpty(t, res.RunID())

	for _, name := range market.ExternalNames {
		_, err := res.Snapshot.Resolve(name)
		assert.NoError(t, err, "missing %s", name)
	}
	assert.NotEmpty(t, tr.Requests())

	_, err = s.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRun)
}

func TestSelectorFreshFailure(t *testing.T) {
	boom := errors.New("reverted")
	tr := transport.NewSimulated()
	tr.FailOn("Pool", boom)

	res, err := NewSelector(ModeFresh, WithTransport(tr)).Run(context.Background())
	require.ErrorIs(t, err, boom)
	require.NotNil(t, res)
	assert.Nil(t, res.Snapshot, "a failed run exports nothing")

	var stepErr *orchestrator.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, market.StepPoolImpl, stepErr.Step)
	assert.Len(t, res.Report.Steps, stepErr.Index)
}

func externalHandles() map[registry.Name]registry.Handle {
	handles := make(map[registry.Name]registry.Handle)
	for i, name := range market.ExternalNames {
		handles[name] = registry.Handle(fmt.Sprintf("0x%040x", i+1))
	}
	return handles
}

func TestSelectorExternal(t *testing.T) {
	t.Run("attaches", func(t *testing.T) {
		tr := transport.NewSimulated()
		res, err := NewSelector(ModeExternal, WithTransport(tr), WithProbe(probe.NewStatic("fork", externalHandles()))).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ModeExternal, res.Mode)
		assert.Equal(t, externalHandles(), res.Snapshot.Map())
		assert.Empty(t, tr.Requests(), "nothing is provisioned in external mode")
	})

	t.Run("mismatch", func(t *testing.T) {
		handles := externalHandles()
		delete(handles, market.WETHGateway)

		res, err := NewSelector(ModeExternal, WithProbe(probe.NewStatic("fork", handles))).Run(context.Background())
		require.Error(t, err)
		assert.Nil(t, res.Snapshot)

		var miss orchestrator.EnvironmentMismatchError
		require.True(t, errors.As(err, &miss))
		assert.Equal(t, market.WETHGateway, miss.Name)
		assert.Equal(t, orchestrator.KindEnvironmentMismatch, orchestrator.ErrorKind(err))
	})

	t.Run("no probe", func(t *testing.T) {
		_, err := NewSelector(ModeExternal).Run(context.Background())
		assert.ErrorIs(t, err, ErrNoProbe)
	})
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Save(ctx context.Context, res *Result) error {
	return m.Called(ctx, res).Error(0)
}

func TestSelectorSink(t *testing.T) {
	t.Run("records failed runs", func(t *testing.T) {
		sink := new(mockSink)
		sink.On("Save", mock.Anything, mock.MatchedBy(func(res *Result) bool {
			return res.Err != nil && res.Snapshot == nil
		})).Return(nil).Once()

		tr := transport.NewSimulated()
		tr.FailOn("RateOracle", errors.New("reverted"))
		_, err := NewSelector(ModeFresh, WithTransport(tr), WithSink(sink)).Run(context.Background())
		require.Error(t, err)
		sink.AssertExpectations(t)
	})

	t.Run("save error fails the run", func(t *testing.T) {
		sink := new(mockSink)
		sink.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		res, err := NewSelector(ModeFresh, WithSink(sink)).Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "save run: disk full")
		require.NotNil(t, res)
		assert.Nil(t, res.Snapshot, "an unsaved run exposes no environment")
		assert.Equal(t, err, res.Err)
		assert.NotNil(t, res.Report, "the execution report is kept")
		sink.AssertExpectations(t)
	})
}

func openAddressBook(t *testing.T) *repos.AddressBookRepository {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	gdb, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repos.NewAddressBookRepository(gdb)
}

func TestFreshRunCanBeAttachedTo(t *testing.T) {
	ctx := context.Background()
	book := openAddressBook(t)

	fresh, err := NewSelector(ModeFresh, WithLabel("shared"), WithSink(NewAddressBookSink(book))).Run(ctx)
	require.NoError(t, err)

	deployment, err := book.GetByRunID(ctx, fresh.RunID())
	require.NoError(t, err)
	assert.Equal(t, models.DeploymentStatusCompleted, deployment.Status)
	assert.Len(t, deployment.Contracts, fresh.Snapshot.Len())
	assert.Len(t, deployment.Steps, len(fresh.Report.Steps))

	attached, err := NewSelector(ModeExternal, WithProbe(probe.NewAddressBook(book, "shared"))).Run(ctx)
	require.NoError(t, err)
	for _, name := range market.ExternalNames {
		assert.Equal(t, fresh.Snapshot.MustResolve(name), attached.Snapshot.MustResolve(name))
	}
}

func TestToDeployment(t *testing.T) {
	res := &Result{
		Label:  "l",
		Mode:   ModeFresh,
		Err:    errors.New("step 2 failed"),
		Report: &orchestrator.Report{RunID: "r", Plan: "p", Steps: []orchestrator.StepReport{{Index: 0, ID: "a"}}},
	}
	d := ToDeployment(res)
	assert.Equal(t, models.DeploymentStatusFailed, d.Status)
	assert.Equal(t, "step 2 failed", d.Error)
	assert.Equal(t, "r", d.RunID)
	assert.Empty(t, d.Contracts)
	require.Len(t, d.Steps, 1)
	assert.Equal(t, "a", d.Steps[0].StepID)
}
