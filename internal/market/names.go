package market

import (
	"strings"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
)

// Registry names of the market's singleton resources
const (
	Deployer       registry.Name = "Deployer"
	EmergencyAdmin registry.Name = "EmergencyAdmin"
	RiskAdmin      registry.Name = "RiskAdmin"

	PoolAddressesProvider         registry.Name = "PoolAddressesProvider"
	PoolAddressesProviderRegistry registry.Name = "PoolAddressesProviderRegistry"
	PoolImpl                      registry.Name = "PoolImpl"
	Pool                          registry.Name = "Pool"
	PoolConfiguratorImpl          registry.Name = "PoolConfiguratorImpl"
	PoolConfigurator              registry.Name = "PoolConfigurator"
	StableAndVariableTokensHelper registry.Name = "StableAndVariableTokensHelper"
	ATokensAndRatesHelper         registry.Name = "ATokensAndRatesHelper"
	PriceOracle                   registry.Name = "PriceOracle"
	AaveOracle                    registry.Name = "AaveOracle"
	RateOracle                    registry.Name = "RateOracle"
	AaveProtocolDataProvider      registry.Name = "AaveProtocolDataProvider"
	MockFlashLoanReceiver         registry.Name = "MockFlashLoanReceiver"
	MockUniswapV2Router02         registry.Name = "MockUniswapV2Router02"
	WalletBalanceProvider         registry.Name = "WalletBalanceProvider"
	WETHGateway                   registry.Name = "WETHGateway"
)

// TokenName is the registry name of a mock token: its symbol upper-cased.
func TokenName(symbol string) registry.Name {
	return registry.Name(strings.ToUpper(symbol))
}

// AggregatorName is the registry name of the mock price aggregator of symbol.
func AggregatorName(symbol string) registry.Name {
	return registry.Name("Aggregator." + symbol)
}

// RateStrategyName is the registry name of a deployed interest rate strategy.
func RateStrategyName(strategy string) registry.Name {
	return registry.Name("RateStrategy." + strategy)
}

func ATokenName(symbol string) registry.Name {
	return registry.Name("a" + symbol)
}

func StableDebtTokenName(symbol string) registry.Name {
	return registry.Name("stableDebt" + symbol)
}

func VariableDebtTokenName(symbol string) registry.Name {
	return registry.Name("variableDebt" + symbol)
}

// ExternalNames are the resources an external environment must already provide.
var ExternalNames = []registry.Name{
	PoolAddressesProvider,
	PoolAddressesProviderRegistry,
	Pool,
	PoolConfigurator,
	AaveOracle,
	AaveProtocolDataProvider,
	WETHGateway,
	WalletBalanceProvider,
	TokenName("WETH"),
}
