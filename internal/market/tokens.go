package market

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/catalog"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/orchestrator"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/transport"
)

// Mock token contracts
const (
	ActionMintableERC20 transport.ActionID = "MintableERC20"
	ActionWETH9Mocked   transport.ActionID = "WETH9Mocked"
)

type tokenHandler func(catalog.Token) orchestrator.Entry

var tokenHandlers = map[catalog.TokenKind]tokenHandler{
	catalog.KindStandard:      standardToken,
	catalog.KindNativeWrapped: nativeWrappedToken,
}

func standardToken(t catalog.Token) orchestrator.Entry {
	return orchestrator.Entry{
		Output: TokenName(t.Symbol),
		Action: ActionMintableERC20,
		Args: transport.Args{
			"name":     t.Symbol,
			"symbol":   t.Symbol,
			"decimals": strconv.Itoa(t.Precision()),
		},
	}
}

func nativeWrappedToken(t catalog.Token) orchestrator.Entry {
	return orchestrator.Entry{
		Output: TokenName(t.Symbol),
		Action: ActionWETH9Mocked,
	}
}

// MockTokens builds the bulk step deploying one mock token per descriptor. A
// descriptor without decimals gets catalog.DefaultDecimals.
func MockTokens(tokens []catalog.Token) (*orchestrator.Bulk, error) {
	step := &orchestrator.Bulk{StepID: StepMockTokens}
	for _, t := range tokens {
		handler, ok := tokenHandlers[t.Variant()]
		if !ok {
			return nil, fmt.Errorf("token %s: no handler for kind %q", t.Symbol, t.Kind)
		}
		step.Entries = append(step.Entries, handler(t))
	}
	return step, nil
}

var errNoNativeToken = errors.New("catalog has no native-wrapped token")
