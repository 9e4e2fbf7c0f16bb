// Package market describes how a lending market test environment is built: the
// fixed, ordered step list of a fresh deployment and the attach step used against
// an existing one.
package market

import (
	"strconv"
	"strings"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/catalog"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/orchestrator"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/transport"
)

// Plan names
const (
	FreshPlanName    = "fresh-market"
	ExternalPlanName = "external-market"
)

// Step ids in execution order
const (
	StepAccounts                   = "accounts"
	StepMockTokens                 = "mock-tokens"
	StepAddressesProvider          = "addresses-provider"
	StepSetPoolAdmin               = "set-pool-admin"
	StepSetEmergencyAdmin          = "set-emergency-admin"
	StepAddressesProviderRegistry  = "addresses-provider-registry"
	StepRegisterAddressesProvider  = "register-addresses-provider"
	StepPoolImpl                   = "pool-impl"
	StepPoolProxy                  = "pool-proxy"
	StepPoolConfiguratorImpl       = "pool-configurator-impl"
	StepPoolConfiguratorProxy      = "pool-configurator-proxy"
	StepRegisterRiskAdmin          = "register-risk-admin"
	StepStableVariableTokensHelper = "stable-variable-tokens-helper"
	StepATokensRatesHelper         = "atokens-rates-helper"
	StepFallbackOracle             = "fallback-oracle"
	StepSetEthUsdPrice             = "set-eth-usd-price"
	StepInitialAssetPrices         = "initial-asset-prices"
	StepMockAggregators            = "mock-aggregators"
	StepAaveOracle                 = "aave-oracle"
	StepSetPriceOracle             = "set-price-oracle"
	StepRateOracle                 = "rate-oracle"
	StepSetRateOracle              = "set-rate-oracle"
	StepInitialMarketRates         = "initial-market-rates"
	StepProtocolDataProvider       = "protocol-data-provider"
	StepReserveRateStrategies      = "reserve-rate-strategies"
	StepReserveTokens              = "reserve-tokens"
	StepInitReserves               = "init-reserves"
	StepConfigureReserves          = "configure-reserves"
	StepDropReserve                = "drop-reserve"
	StepFlashLoanReceiver          = "flash-loan-receiver"
	StepUniswapRouter              = "uniswap-router"
	StepWalletBalanceProvider      = "wallet-balance-provider"
	StepWETHGateway                = "weth-gateway"
	StepAuthorizeWETHGateway       = "authorize-weth-gateway"
	StepAttachExternal             = "attach-external"
)

// Signer indexes of the market roles
const (
	deployerIndex       = 0
	emergencyAdminIndex = 2
	riskAdminIndex      = 3
)

// usdSymbol is priced at the market's global USD address instead of its mock token.
const usdSymbol = "USD"

// oracleExcluded are the symbols the AaveOracle gets no aggregator for.
var oracleExcluded = map[string]struct{}{"ETH": {}, "USD": {}, "WETH": {}}

// FreshPlan returns the ordered steps that deploy and configure a complete market
// described by c.
func FreshPlan(c *catalog.Catalog) (orchestrator.Plan, error) {
	tokens, err := MockTokens(c.Tokens)
	if err != nil {
		return orchestrator.Plan{}, err
	}
	native, ok := c.NativeWrapped()
	if !ok {
		return orchestrator.Plan{}, errNoNativeToken
	}
	weth := TokenName(native.Symbol)
	p := c.Params

	steps := []orchestrator.Step{
		accounts(),
		tokens,
		&orchestrator.Deploy{
			StepID: StepAddressesProvider,
			Action: "PoolAddressesProvider",
			Args:   transport.Args{"market_id": p.MarketID},
			Output: PoolAddressesProvider,
		},
		&orchestrator.Call{
			StepID: StepSetPoolAdmin,
			Action: "PoolAddressesProvider.setPoolAdmin",
			Inputs: []registry.Name{PoolAddressesProvider, Deployer},
		},
		&orchestrator.Call{
			StepID: StepSetEmergencyAdmin,
			Action: "PoolAddressesProvider.setEmergencyAdmin",
			Inputs: []registry.Name{PoolAddressesProvider, EmergencyAdmin},
		},
		&orchestrator.Deploy{
			StepID: StepAddressesProviderRegistry,
			Action: "PoolAddressesProviderRegistry",
			Output: PoolAddressesProviderRegistry,
		},
		&orchestrator.Call{
			StepID: StepRegisterAddressesProvider,
			Action: "PoolAddressesProviderRegistry.registerAddressesProvider",
			Inputs: []registry.Name{PoolAddressesProviderRegistry, PoolAddressesProvider},
			Args:   transport.Args{"id": "1"},
		},
		&orchestrator.Deploy{
			StepID: StepPoolImpl,
			Action: "Pool",
			Inputs: []registry.Name{PoolAddressesProvider},
			Output: PoolImpl,
		},
		&orchestrator.Deploy{
			StepID: StepPoolProxy,
			Action: "PoolAddressesProvider.setPoolImpl",
			Inputs: []registry.Name{PoolAddressesProvider, PoolImpl},
			Output: Pool,
		},
		&orchestrator.Deploy{
			StepID: StepPoolConfiguratorImpl,
			Action: "PoolConfigurator",
			Output: PoolConfiguratorImpl,
		},
		&orchestrator.Deploy{
			StepID: StepPoolConfiguratorProxy,
			Action: "PoolAddressesProvider.setPoolConfiguratorImpl",
			Inputs: []registry.Name{PoolAddressesProvider, PoolConfiguratorImpl},
			Output: PoolConfigurator,
		},
		&orchestrator.Call{
			StepID: StepRegisterRiskAdmin,
			Action: "PoolConfigurator.registerRiskAdmin",
			Inputs: []registry.Name{PoolConfigurator, RiskAdmin},
		},
		&orchestrator.Deploy{
			StepID: StepStableVariableTokensHelper,
			Action: "StableAndVariableTokensHelper",
			Inputs: []registry.Name{Pool, PoolAddressesProvider},
			Output: StableAndVariableTokensHelper,
		},
		&orchestrator.Deploy{
			StepID: StepATokensRatesHelper,
			Action: "ATokensAndRatesHelper",
			Inputs: []registry.Name{Pool, PoolAddressesProvider, PoolConfigurator},
			Output: ATokensAndRatesHelper,
		},
		&orchestrator.Deploy{
			StepID: StepFallbackOracle,
			Action: "PriceOracle",
			Output: PriceOracle,
		},
		&orchestrator.Call{
			StepID: StepSetEthUsdPrice,
			Action: "PriceOracle.setEthUsdPrice",
			Inputs: []registry.Name{PriceOracle},
			Args:   transport.Args{"price": p.MockUsdPriceInWei},
		},
		initialAssetPrices(c),
		mockAggregators(c),
		aaveOracle(c, weth),
		&orchestrator.Call{
			StepID: StepSetPriceOracle,
			Action: "PoolAddressesProvider.setPriceOracle",
			Inputs: []registry.Name{PoolAddressesProvider, PriceOracle},
		},
		&orchestrator.Deploy{
			StepID: StepRateOracle,
			Action: "RateOracle",
			Output: RateOracle,
		},
		&orchestrator.Call{
			StepID: StepSetRateOracle,
			Action: "PoolAddressesProvider.setRateOracle",
			Inputs: []registry.Name{PoolAddressesProvider, RateOracle},
		},
		initialMarketRates(c),
		&orchestrator.Deploy{
			StepID: StepProtocolDataProvider,
			Action: "AaveProtocolDataProvider",
			Inputs: []registry.Name{PoolAddressesProvider},
			Output: AaveProtocolDataProvider,
		},
		reserveRateStrategies(c),
		reserveTokens(c),
		initReserves(c),
		configureReserves(c),
	}

	if d := p.DroppedReserve; d != "" {
		steps = append(steps, &orchestrator.Call{
			StepID: StepDropReserve,
			Action: "PoolConfigurator.dropReserve",
			Inputs: []registry.Name{PoolConfigurator, TokenName(d)},
		})
	}

	steps = append(steps,
		&orchestrator.Deploy{
			StepID: StepFlashLoanReceiver,
			Action: "MockFlashLoanReceiver",
			Inputs: []registry.Name{PoolAddressesProvider},
			Output: MockFlashLoanReceiver,
		},
		&orchestrator.Deploy{
			StepID: StepUniswapRouter,
			Action: "MockUniswapV2Router02",
			Output: MockUniswapV2Router02,
		},
		&orchestrator.Deploy{
			StepID: StepWalletBalanceProvider,
			Action: "WalletBalanceProvider",
			Output: WalletBalanceProvider,
		},
		&orchestrator.Deploy{
			StepID: StepWETHGateway,
			Action: "WETHGateway",
			Inputs: []registry.Name{weth},
			Output: WETHGateway,
		},
		&orchestrator.Call{
			StepID: StepAuthorizeWETHGateway,
			Action: "WETHGateway.authorizePool",
			Inputs: []registry.Name{WETHGateway, Pool},
		},
	)

	return orchestrator.Plan{Name: FreshPlanName, Steps: steps}, nil
}

// ExternalPlan attaches to a market that already exists, looking every expected
// resource up through probe.
func ExternalPlan(probe orchestrator.Probe) orchestrator.Plan {
	return orchestrator.Plan{
		Name: ExternalPlanName,
		Steps: []orchestrator.Step{
			&orchestrator.Attach{StepID: StepAttachExternal, Names: ExternalNames, Probe: probe},
		},
	}
}

func accounts() *orchestrator.Bulk {
	signer := func(name registry.Name, index int) orchestrator.Entry {
		return orchestrator.Entry{
			Output: name,
			Action: "Signer",
			Kind:   transport.KindAccount,
			Args:   transport.Args{"index": strconv.Itoa(index)},
		}
	}
	return &orchestrator.Bulk{
		StepID: StepAccounts,
		Entries: []orchestrator.Entry{
			signer(Deployer, deployerIndex),
			signer(EmergencyAdmin, emergencyAdminIndex),
			signer(RiskAdmin, riskAdminIndex),
		},
	}
}

func initialAssetPrices(c *catalog.Catalog) *orchestrator.Bulk {
	step := &orchestrator.Bulk{StepID: StepInitialAssetPrices}
	for _, price := range c.Prices {
		e := orchestrator.Entry{
			Action: "PriceOracle.setAssetPrice",
			Inputs: []registry.Name{PriceOracle},
			Args:   transport.Args{"symbol": price.Symbol, "price": price.Value},
		}
		if price.Symbol == usdSymbol {
			e.Args["asset"] = c.Params.UsdAddress
		} else {
			e.Inputs = append(e.Inputs, TokenName(price.Symbol))
		}
		step.Entries = append(step.Entries, e)
	}
	return step
}

func mockAggregators(c *catalog.Catalog) *orchestrator.Bulk {
	step := &orchestrator.Bulk{StepID: StepMockAggregators}
	for _, price := range c.Prices {
		step.Entries = append(step.Entries, orchestrator.Entry{
			Output: AggregatorName(price.Symbol),
			Action: "MockAggregator",
			Args:   transport.Args{"price": price.Value},
		})
	}
	return step
}

func aaveOracle(c *catalog.Catalog, weth registry.Name) *orchestrator.Deploy {
	var (
		assets []string
		inputs []registry.Name
	)
	for _, price := range c.Prices {
		if _, skip := oracleExcluded[price.Symbol]; skip {
			continue
		}
		assets = append(assets, price.Symbol)
		inputs = append(inputs, TokenName(price.Symbol), AggregatorName(price.Symbol))
	}
	inputs = append(inputs, PriceOracle, weth)

	return &orchestrator.Deploy{
		StepID: StepAaveOracle,
		Action: "AaveOracle",
		Inputs: inputs,
		Args: transport.Args{
			"assets":    strings.Join(assets, ","),
			"base_unit": c.Params.OracleBaseUnit,
		},
		Output: AaveOracle,
	}
}

func initialMarketRates(c *catalog.Catalog) *orchestrator.Bulk {
	step := &orchestrator.Bulk{StepID: StepInitialMarketRates}
	for _, rate := range c.Rates {
		if rate.Symbol == usdSymbol {
			continue
		}
		step.Entries = append(step.Entries, orchestrator.Entry{
			Action: "RateOracle.setMarketBorrowRate",
			Inputs: []registry.Name{RateOracle, TokenName(rate.Symbol), Deployer},
			Args:   transport.Args{"symbol": rate.Symbol, "rate": rate.BorrowRate},
		})
	}
	return step
}

func reserveRateStrategies(c *catalog.Catalog) *orchestrator.Bulk {
	step := &orchestrator.Bulk{StepID: StepReserveRateStrategies}
	seen := make(map[string]struct{})
	for _, r := range c.Reserves {
		if _, ok := seen[r.Strategy]; ok {
			continue
		}
		seen[r.Strategy] = struct{}{}

		s, _ := c.Strategy(r.Strategy)
		step.Entries = append(step.Entries, orchestrator.Entry{
			Output: RateStrategyName(s.Name),
			Action: "DefaultReserveInterestRateStrategy",
			Inputs: []registry.Name{PoolAddressesProvider},
			Args: transport.Args{
				"optimal_usage_ratio":                s.OptimalUsageRatio,
				"base_variable_borrow_rate":          s.BaseVariableBorrowRate,
				"variable_rate_slope1":               s.VariableRateSlope1,
				"variable_rate_slope2":               s.VariableRateSlope2,
				"stable_rate_slope1":                 s.StableRateSlope1,
				"stable_rate_slope2":                 s.StableRateSlope2,
				"base_stable_rate_offset":            s.BaseStableRateOffset,
				"stable_rate_excess_offset":          s.StableRateExcessOffset,
				"optimal_stable_to_total_debt_ratio": s.OptimalStableToTotalDebtRatio,
			},
		})
	}
	return step
}

func reserveTokens(c *catalog.Catalog) *orchestrator.Bulk {
	p := c.Params
	step := &orchestrator.Bulk{StepID: StepReserveTokens}
	for _, r := range c.Reserves {
		underlying := TokenName(r.Symbol)
		step.Entries = append(step.Entries,
			orchestrator.Entry{
				Output: ATokenName(r.Symbol),
				Action: "AToken",
				Inputs: []registry.Name{Pool, underlying},
				Args: transport.Args{
					"name":   p.ATokenNamePrefix + " " + r.Symbol,
					"symbol": "a" + p.SymbolPrefix + r.Symbol,
				},
			},
			orchestrator.Entry{
				Output: StableDebtTokenName(r.Symbol),
				Action: "StableDebtToken",
				Inputs: []registry.Name{Pool, underlying},
				Args: transport.Args{
					"name":   p.StableDebtTokenNamePrefix + " " + r.Symbol,
					"symbol": "stableDebt" + p.SymbolPrefix + r.Symbol,
				},
			},
			orchestrator.Entry{
				Output: VariableDebtTokenName(r.Symbol),
				Action: "VariableDebtToken",
				Inputs: []registry.Name{Pool, underlying},
				Args: transport.Args{
					"name":   p.VariableDebtTokenNamePrefix + " " + r.Symbol,
					"symbol": "variableDebt" + p.SymbolPrefix + r.Symbol,
				},
			},
		)
	}
	return step
}

func initReserves(c *catalog.Catalog) *orchestrator.Bulk {
	step := &orchestrator.Bulk{StepID: StepInitReserves}
	for _, r := range c.Reserves {
		tok, _ := c.Token(r.Symbol)
		step.Entries = append(step.Entries, orchestrator.Entry{
			Action: "PoolConfigurator.initReserves",
			Inputs: []registry.Name{
				PoolConfigurator,
				TokenName(r.Symbol),
				ATokenName(r.Symbol),
				StableDebtTokenName(r.Symbol),
				VariableDebtTokenName(r.Symbol),
				RateStrategyName(r.Strategy),
				Deployer,
			},
			Args: transport.Args{
				"symbol":                r.Symbol,
				"underlying_decimals":   strconv.Itoa(tok.Precision()),
				"treasury":              c.Params.Treasury,
				"incentives_controller": c.Params.IncentivesController,
			},
		})
	}
	return step
}

func configureReserves(c *catalog.Catalog) *orchestrator.Bulk {
	step := &orchestrator.Bulk{StepID: StepConfigureReserves}
	for _, r := range c.Reserves {
		inputs := []registry.Name{PoolConfigurator, TokenName(r.Symbol), AaveProtocolDataProvider}
		step.Entries = append(step.Entries, orchestrator.Entry{
			Action: "PoolConfigurator.configureReserveAsCollateral",
			Inputs: inputs,
			Args: transport.Args{
				"symbol":                r.Symbol,
				"ltv":                   r.BaseLTV,
				"liquidation_threshold": r.LiquidationThreshold,
				"liquidation_bonus":     r.LiquidationBonus,
			},
		})
		if r.BorrowingEnabled {
			step.Entries = append(step.Entries, orchestrator.Entry{
				Action: "PoolConfigurator.setReserveBorrowing",
				Inputs: inputs,
				Args:   transport.Args{"symbol": r.Symbol, "enabled": "true"},
			})
		}
		if r.StableBorrowRateEnabled {
			step.Entries = append(step.Entries, orchestrator.Entry{
				Action: "PoolConfigurator.setReserveStableRateBorrowing",
				Inputs: inputs,
				Args:   transport.Args{"symbol": r.Symbol, "enabled": "true"},
			})
		}
		step.Entries = append(step.Entries, orchestrator.Entry{
			Action: "PoolConfigurator.setReserveFactor",
			Inputs: inputs,
			Args:   transport.Args{"symbol": r.Symbol, "reserve_factor": r.ReserveFactor},
		})
	}
	return step
}
