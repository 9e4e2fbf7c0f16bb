package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pulumi/pulumi/sdk/v3/go/auto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/orchestrator"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
)

var (
	_ orchestrator.Probe = &Static{}
	_ orchestrator.Probe = &AddressBook{}
	_ orchestrator.Probe = &PulumiStack{}
)

func TestStatic(t *testing.T) {
	handles := map[registry.Name]registry.Handle{"Pool": "0x01", "AaveOracle": "0x02"}
	p := NewStatic("fixture", handles)
	handles["Pool"] = "0xff"

	h, ok, err := p.Lookup(context.Background(), "Pool")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, registry.Handle("0x01"), h, "the probe keeps its own copy")

	_, ok, err = p.Lookup(context.Background(), "WETH")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []registry.Name{"AaveOracle", "Pool"}, p.Names())
	assert.Equal(t, "static:fixture", p.String())
}

func TestFileRoundTrip(t *testing.T) {
	snap, err := registry.NewSnapshot([]registry.Entry{
		{Name: "PoolAddressesProvider", Handle: "0x0a"},
		{Name: "Pool", Handle: "0x0b"},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "book.yaml")
	require.NoError(t, WriteFile(path, "local", "run-1", snap))

	p, err := LoadFile(path)
	require.NoError(t, err)
	h, ok, err := p.Lookup(context.Background(), "Pool")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, registry.Handle("0x0b"), h)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	dup := filepath.Join(dir, "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte(`
label: local
contracts:
  - {name: Pool, handle: "0x01"}
  - {name: Pool, handle: "0x02"}
`), 0o600))
	_, err = LoadFile(dup)
	var dupErr registry.DuplicateResourceError
	assert.True(t, errors.As(err, &dupErr))
}

type mockLookuper struct {
	mock.Mock
}

func (m *mockLookuper) Lookup(ctx context.Context, label, name string) (string, bool, error) {
	args := m.Called(ctx, label, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func TestAddressBook(t *testing.T) {
	repo := new(mockLookuper)
	repo.On("Lookup", mock.Anything, "mainnet", "Pool").Return("0x01", true, nil)
	repo.On("Lookup", mock.Anything, "mainnet", "WETH").Return("", false, nil)
	repo.On("Lookup", mock.Anything, "mainnet", "AaveOracle").Return("", false, errors.New("db down"))

	p := NewAddressBook(repo, "mainnet")
	ctx := context.Background()

	h, ok, err := p.Lookup(ctx, "Pool")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, registry.Handle("0x01"), h)

	_, ok, err = p.Lookup(ctx, "WETH")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = p.Lookup(ctx, "AaveOracle")
	assert.EqualError(t, err, "db down")

	assert.Equal(t, "addressbook:mainnet", p.String())
	repo.AssertExpectations(t)
}

func TestHandlesFromOutputs(t *testing.T) {
	handles := HandlesFromOutputs(auto.OutputMap{
		"Pool_address":       {Value: "0x01"},
		"AaveOracle":         {Value: "0x02"},
		"WETH_address":       {Value: "0x03"},
		"WETH":               {Value: "0x04"},
		"replicas":           {Value: float64(3)},
		"_address":           {Value: "0x05"},
		"Secret_address":     {Value: "0x06", Secret: true},
		"WalletBalance_addr": {Value: ""},
	})

	assert.Equal(t, map[registry.Name]registry.Handle{
		"Pool":       "0x01",
		"AaveOracle": "0x02",
		"WETH":       "0x04",
		"_address":   "0x05",
		"Secret":     "0x06",
	}, handles)
}

func TestPulumiStackFetchesOutputsOnce(t *testing.T) {
	calls := 0
	p := NewPulumiStack("org/market/mainnet", t.TempDir())
	p.outputs = func(context.Context) (auto.OutputMap, error) {
		calls++
		return auto.OutputMap{"Pool_address": {Value: "0x01"}}, nil
	}

	ctx := context.Background()
	h, ok, err := p.Lookup(ctx, "Pool")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, registry.Handle("0x01"), h)

	_, ok, err = p.Lookup(ctx, "WETH")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "pulumi:org/market/mainnet", p.String())
}

func TestPulumiStackRetriesAfterError(t *testing.T) {
	fail := true
	p := NewPulumiStack("dev", ".")
	p.outputs = func(context.Context) (auto.OutputMap, error) {
		if fail {
			return nil, errors.New("no stack")
		}
		return auto.OutputMap{"Pool": {Value: "0x01"}}, nil
	}

	_, _, err := p.Lookup(context.Background(), "Pool")
	require.Error(t, err)

	fail = false
	_, ok, err := p.Lookup(context.Background(), "Pool")
	require.NoError(t, err)
	assert.True(t, ok)
}
