package market

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/catalog"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/orchestrator"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/transport"
)

var freshOrder = []string{
	StepAccounts,
	StepMockTokens,
	StepAddressesProvider,
	StepSetPoolAdmin,
	StepSetEmergencyAdmin,
	StepAddressesProviderRegistry,
	StepRegisterAddressesProvider,
	StepPoolImpl,
	StepPoolProxy,
	StepPoolConfiguratorImpl,
	StepPoolConfiguratorProxy,
	StepRegisterRiskAdmin,
	StepStableVariableTokensHelper,
	StepATokensRatesHelper,
	StepFallbackOracle,
	StepSetEthUsdPrice,
	StepInitialAssetPrices,
	StepMockAggregators,
	StepAaveOracle,
	StepSetPriceOracle,
	StepRateOracle,
	StepSetRateOracle,
	StepInitialMarketRates,
	StepProtocolDataProvider,
	StepReserveRateStrategies,
	StepReserveTokens,
	StepInitReserves,
	StepConfigureReserves,
	StepDropReserve,
	StepFlashLoanReceiver,
	StepUniswapRouter,
	StepWalletBalanceProvider,
	StepWETHGateway,
	StepAuthorizeWETHGateway,
}

func TestFreshPlanOrder(t *testing.T) {
	plan, err := FreshPlan(catalog.Default())
	require.NoError(t, err)

	assert.Equal(t, FreshPlanName, plan.Name)
	assert.Equal(t, freshOrder, plan.StepIDs())
	assert.Len(t, plan.Steps, 34)
	require.NoError(t, plan.Validate())
}

func TestFreshPlanWithoutDroppedReserve(t *testing.T) {
	c := catalog.Default()
	c.Params.DroppedReserve = ""

	plan, err := FreshPlan(c)
	require.NoError(t, err)
	assert.NotContains(t, plan.StepIDs(), StepDropReserve)
	assert.Len(t, plan.Steps, 33)
	require.NoError(t, plan.Validate())
}

func runFresh(t *testing.T, c *catalog.Catalog) (*transport.Simulated, *registry.Snapshot) {
	t.Helper()
	plan, err := FreshPlan(c)
	require.NoError(t, err)

	tr := transport.NewSimulated()
	reg := registry.New()
	_, err = orchestrator.NewExecutor(tr).Run(context.Background(), plan, reg)
	require.NoError(t, err)
	return tr, reg.Export()
}

func TestFreshPlanProvisionsMarket(t *testing.T) {
	c := catalog.Default()
	tr, snap := runFresh(t, c)

	for _, name := range ExternalNames {
		_, err := snap.Resolve(name)
		assert.NoError(t, err, "missing %s", name)
	}
	for _, tok := range c.Tokens {
		_, err := snap.Resolve(TokenName(tok.Symbol))
		assert.NoError(t, err, "missing token %s", tok.Symbol)
	}
	for _, r := range c.Reserves {
		for _, name := range []registry.Name{ATokenName(r.Symbol), StableDebtTokenName(r.Symbol), VariableDebtTokenName(r.Symbol), RateStrategyName(r.Strategy)} {
			_, err := snap.Resolve(name)
			assert.NoError(t, err, "missing %s", name)
		}
	}

	assert.NotEqual(t, snap.MustResolve(PoolImpl), snap.MustResolve(Pool), "proxy and implementation are distinct resources")
	assert.Equal(t, tr.Accounts()[0], snap.MustResolve(Deployer))
	assert.Equal(t, tr.Accounts()[2], snap.MustResolve(EmergencyAdmin))
	assert.Equal(t, tr.Accounts()[3], snap.MustResolve(RiskAdmin))

	for _, price := range catalog.Default().Prices {
		_, err := snap.Resolve(AggregatorName(price.Symbol))
		assert.NoError(t, err, "missing aggregator for %s", price.Symbol)
	}
}

func TestAaveOracleSkipsNativeAndUSDPairs(t *testing.T) {
	tr, snap := runFresh(t, catalog.Default())

	reqs := tr.RequestsFor("AaveOracle")
	require.Len(t, reqs, 1)
	deps := reqs[0].Dependencies
	assert.Equal(t, snap.MustResolve(AggregatorName("DAI")), deps[AggregatorName("DAI")])
	for _, sym := range []string{"ETH", "USD", "WETH"} {
		assert.NotContains(t, deps, AggregatorName(sym))
	}
	assert.Contains(t, deps, TokenName("WETH"), "WETH is the base currency")
}

func TestFreshPlanPricesEachAssetAtItsOwnToken(t *testing.T) {
	c := catalog.Default()
	tr, snap := runFresh(t, c)

	prices := make(map[string]transport.Request)
	for _, req := range tr.RequestsFor("PriceOracle.setAssetPrice") {
		prices[req.Args["symbol"]] = req
	}
	require.Len(t, prices, len(c.Prices))

	yfi := prices["YFI"]
	assert.Equal(t, snap.MustResolve(TokenName("YFI")), yfi.Dependencies[TokenName("YFI")])
	assert.NotContains(t, yfi.Dependencies, TokenName("BUSD"))

	usd := prices["USD"]
	assert.Equal(t, c.Params.UsdAddress, usd.Args["asset"])
	assert.NotContains(t, usd.Dependencies, TokenName("USD"))
}

func TestFreshPlanDropsReserveBeforeLaterSteps(t *testing.T) {
	tr, snap := runFresh(t, catalog.Default())

	reqs := tr.Requests()
	drop, receiver := -1, -1
	for i, req := range reqs {
		switch req.Action {
		case "PoolConfigurator.dropReserve":
			drop = i
			assert.Equal(t, snap.MustResolve(TokenName("KNC")), req.Dependencies[TokenName("KNC")])
		case "MockFlashLoanReceiver":
			receiver = i
		}
	}
	require.NotEqual(t, -1, drop)
	assert.Less(t, drop, receiver)
}

func TestFreshPlanStopsOnTransportFailure(t *testing.T) {
	plan, err := FreshPlan(catalog.Default())
	require.NoError(t, err)

	boom := errors.New("reverted")
	tr := transport.NewSimulated()
	tr.FailOn("AaveOracle", boom)

	reg := registry.New()
	_, err = orchestrator.NewExecutor(tr).Run(context.Background(), plan, reg)
	require.ErrorIs(t, err, boom)

	var stepErr *orchestrator.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepAaveOracle, stepErr.Step)
	assert.True(t, reg.Has(AggregatorName("DAI")))
	assert.False(t, reg.Has(AaveOracle))
	assert.Empty(t, tr.RequestsFor("RateOracle"))
}

type staticProbe map[registry.Name]registry.Handle

func (p staticProbe) Lookup(_ context.Context, name registry.Name) (registry.Handle, bool, error) {
	h, ok := p[name]
	return h, ok, nil
}

func (p staticProbe) String() string { return "static" }

func TestExternalPlan(t *testing.T) {
	full := staticProbe{}
	for i, name := range ExternalNames {
		full[name] = registry.Handle(fmt.Sprintf("0x%040x", i+1))
	}

	t.Run("attaches", func(t *testing.T) {
		tr := transport.NewSimulated()
		reg := registry.New()
		_, err := orchestrator.NewExecutor(tr).Run(context.Background(), ExternalPlan(full), reg)
		require.NoError(t, err)
		assert.Equal(t, ExternalNames, reg.Names())
		assert.Empty(t, tr.Requests(), "attaching submits nothing")
	})

	t.Run("missing resource", func(t *testing.T) {
		partial := staticProbe{}
		for k, v := range full {
			if k != AaveOracle {
				partial[k] = v
			}
		}
		_, err := orchestrator.NewExecutor(transport.NewSimulated()).Run(context.Background(), ExternalPlan(partial), registry.New())

		var miss orchestrator.EnvironmentMismatchError
		require.True(t, errors.As(err, &miss))
		assert.Equal(t, AaveOracle, miss.Name)
	})
}
