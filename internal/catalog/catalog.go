// Package catalog holds the static description of the lending market the test
// environment provisions: tokens, prices, rates, rate strategies and reserves.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultDecimals is the precision of a token whose descriptor has none.
const DefaultDecimals = 18

// TokenKind selects how a mock token is deployed.
type TokenKind string

const (
	// KindStandard is a mintable ERC20 with a configurable precision
	KindStandard TokenKind = "standard"
	// KindNativeWrapped is the wrapped native asset (WETH)
	KindNativeWrapped TokenKind = "native-wrapped"
)

// Token describes one mock token.
type Token struct {
	Symbol   string    `yaml:"symbol" json:"symbol"`
	Kind     TokenKind `yaml:"kind,omitempty" json:"kind,omitempty"`
	Decimals *int      `yaml:"decimals,omitempty" json:"decimals,omitempty"`
}

// Variant returns the token's kind, KindStandard when unset.
func (t Token) Variant() TokenKind {
	if t.Kind == "" {
		return KindStandard
	}
	return t.Kind
}

// Precision returns the token's decimals, DefaultDecimals when unset.
func (t Token) Precision() int {
	if t.Decimals == nil {
		return DefaultDecimals
	}
	return *t.Decimals
}

// Price is the initial price of an asset in wei.
type Price struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	Value  string `yaml:"value" json:"value"`
}

// Rate is the initial market borrow rate of an asset in ray.
type Rate struct {
	Symbol     string `yaml:"symbol" json:"symbol"`
	BorrowRate string `yaml:"borrow_rate" json:"borrow_rate"`
}

// RateStrategy holds the parameters of an interest rate strategy, all in ray.
type RateStrategy struct {
	Name                          string `yaml:"name" json:"name"`
	OptimalUsageRatio             string `yaml:"optimal_usage_ratio" json:"optimal_usage_ratio"`
	BaseVariableBorrowRate        string `yaml:"base_variable_borrow_rate" json:"base_variable_borrow_rate"`
	VariableRateSlope1            string `yaml:"variable_rate_slope1" json:"variable_rate_slope1"`
	VariableRateSlope2            string `yaml:"variable_rate_slope2" json:"variable_rate_slope2"`
	StableRateSlope1              string `yaml:"stable_rate_slope1" json:"stable_rate_slope1"`
	StableRateSlope2              string `yaml:"stable_rate_slope2" json:"stable_rate_slope2"`
	BaseStableRateOffset          string `yaml:"base_stable_rate_offset" json:"base_stable_rate_offset"`
	StableRateExcessOffset        string `yaml:"stable_rate_excess_offset" json:"stable_rate_excess_offset"`
	OptimalStableToTotalDebtRatio string `yaml:"optimal_stable_to_total_debt_ratio" json:"optimal_stable_to_total_debt_ratio"`
}

// Reserve configures one market reserve. Percentages are in basis points.
type Reserve struct {
	Symbol                  string `yaml:"symbol" json:"symbol"`
	Strategy                string `yaml:"strategy" json:"strategy"`
	BaseLTV                 string `yaml:"base_ltv" json:"base_ltv"`
	LiquidationThreshold    string `yaml:"liquidation_threshold" json:"liquidation_threshold"`
	LiquidationBonus        string `yaml:"liquidation_bonus" json:"liquidation_bonus"`
	ReserveFactor           string `yaml:"reserve_factor" json:"reserve_factor"`
	BorrowingEnabled        bool   `yaml:"borrowing_enabled" json:"borrowing_enabled"`
	StableBorrowRateEnabled bool   `yaml:"stable_borrow_rate_enabled" json:"stable_borrow_rate_enabled"`
	SupplyCap               string `yaml:"supply_cap,omitempty" json:"supply_cap,omitempty"`
	BorrowCap               string `yaml:"borrow_cap,omitempty" json:"borrow_cap,omitempty"`
	DebtCeiling             string `yaml:"debt_ceiling,omitempty" json:"debt_ceiling,omitempty"`
}

// Params are the market-wide parameters.
type Params struct {
	MarketID                    string `yaml:"market_id" json:"market_id"`
	MockUsdPriceInWei           string `yaml:"mock_usd_price_in_wei" json:"mock_usd_price_in_wei"`
	UsdAddress                  string `yaml:"usd_address" json:"usd_address"`
	ATokenNamePrefix            string `yaml:"atoken_name_prefix" json:"atoken_name_prefix"`
	StableDebtTokenNamePrefix   string `yaml:"stable_debt_token_name_prefix" json:"stable_debt_token_name_prefix"`
	VariableDebtTokenNamePrefix string `yaml:"variable_debt_token_name_prefix" json:"variable_debt_token_name_prefix"`
	SymbolPrefix                string `yaml:"symbol_prefix" json:"symbol_prefix"`
	Treasury                    string `yaml:"treasury" json:"treasury"`
	IncentivesController        string `yaml:"incentives_controller" json:"incentives_controller"`
	DroppedReserve              string `yaml:"dropped_reserve,omitempty" json:"dropped_reserve,omitempty"`
	OracleBaseUnit              string `yaml:"oracle_base_unit" json:"oracle_base_unit"`
}

// Catalog is the full static market description.
type Catalog struct {
	Params     Params         `yaml:"params" json:"params"`
	Tokens     []Token        `yaml:"tokens" json:"tokens"`
	Prices     []Price        `yaml:"prices" json:"prices"`
	Rates      []Rate         `yaml:"rates" json:"rates"`
	Strategies []RateStrategy `yaml:"strategies" json:"strategies"`
	Reserves   []Reserve      `yaml:"reserves" json:"reserves"`
}

//go:embed default.yaml
var defaultYAML []byte

// Default returns a fresh copy of the embedded default market.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog file. An empty path loads the embedded default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates YAML catalog data.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Token returns the token with the given symbol.
func (c *Catalog) Token(symbol string) (Token, bool) {
	for _, t := range c.Tokens {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return Token{}, false
}

// NativeWrapped returns the wrapped native token.
func (c *Catalog) NativeWrapped() (Token, bool) {
	for _, t := range c.Tokens {
		if t.Variant() == KindNativeWrapped {
			return t, true
		}
	}
	return Token{}, false
}

// Reserve returns the reserve configuration of symbol.
func (c *Catalog) Reserve(symbol string) (Reserve, bool) {
	for _, r := range c.Reserves {
		if r.Symbol == symbol {
			return r, true
		}
	}
	return Reserve{}, false
}

// Strategy returns the rate strategy with the given name.
func (c *Catalog) Strategy(name string) (RateStrategy, bool) {
	for _, s := range c.Strategies {
		if s.Name == name {
			return s, true
		}
	}
	return RateStrategy{}, false
}

// Validate checks the catalog for internal consistency.
func (c *Catalog) Validate() error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Params.MarketID == "" {
		add("params.market_id is required")
	}
	if c.Params.UsdAddress == "" {
		add("params.usd_address is required")
	}

	tokens := make(map[string]struct{}, len(c.Tokens))
	native := 0
	for i, t := range c.Tokens {
		if t.Symbol == "" {
			add("tokens[%d]: symbol is required", i)
			continue
		}
		if _, dup := tokens[t.Symbol]; dup {
			add("tokens[%d]: duplicate symbol %s", i, t.Symbol)
		}
		tokens[t.Symbol] = struct{}{}

		switch t.Variant() {
		case KindStandard:
		case KindNativeWrapped:
			native++
		default:
			add("token %s: unknown kind %q", t.Symbol, t.Kind)
		}
		if t.Decimals != nil && (*t.Decimals < 0 || *t.Decimals > 77) {
			add("token %s: decimals %d out of range", t.Symbol, *t.Decimals)
		}
	}
	if native != 1 {
		add("exactly one native-wrapped token is required, found %d", native)
	}

	for _, p := range c.Prices {
		if _, ok := tokens[p.Symbol]; !ok {
			add("price for unknown token %s", p.Symbol)
		}
	}
	for _, r := range c.Rates {
		if _, ok := tokens[r.Symbol]; !ok {
			add("rate for unknown token %s", r.Symbol)
		}
	}

	strategies := make(map[string]struct{}, len(c.Strategies))
	for _, s := range c.Strategies {
		if _, dup := strategies[s.Name]; dup {
			add("duplicate strategy %s", s.Name)
		}
		strategies[s.Name] = struct{}{}
	}

	reserves := make(map[string]struct{}, len(c.Reserves))
	for _, r := range c.Reserves {
		if _, ok := tokens[r.Symbol]; !ok {
			add("reserve for unknown token %s", r.Symbol)
		}
		if _, dup := reserves[r.Symbol]; dup {
			add("duplicate reserve %s", r.Symbol)
		}
		reserves[r.Symbol] = struct{}{}
		if _, ok := strategies[r.Strategy]; !ok {
			add("reserve %s: unknown strategy %s", r.Symbol, r.Strategy)
		}
	}
	if d := c.Params.DroppedReserve; d != "" {
		if _, ok := reserves[d]; !ok {
			add("dropped reserve %s is not a reserve", d)
		}
	}

	return errors.Join(errs...)
}
