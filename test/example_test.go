package test_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/environment"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/market"
	"github.com/TobaSenju/mahalend-contracts-periphery/test"
)

// ReservesSuite shows how a suite embeds test.Suite and reads the provisioned
// market. Every test of the suite shares one deployment.
type ReservesSuite struct {
	test.Suite
}

func (s *ReservesSuite) SetupSuite() {
	s.Mode = environment.ModeFresh
	s.Suite.SetupSuite()
}

func (s *ReservesSuite) TestReserveTokens() {
	for _, symbol := range []string{"DAI", "USDC", "WETH"} {
		s.NotEmpty(s.Resolve(market.ATokenName(symbol)))
		s.NotEmpty(s.Resolve(market.StableDebtTokenName(symbol)))
		s.NotEmpty(s.Resolve(market.VariableDebtTokenName(symbol)))
	}
}

func (s *ReservesSuite) TestGatewayWrapsWETH() {
	deployed, ok := s.Chain.Deployment(s.Resolve(market.WETHGateway))
	s.Require().True(ok)
	s.Equal(s.Resolve(market.TokenName("WETH")), deployed.Dependencies[market.TokenName("WETH")])
}

func TestReservesSuite(t *testing.T) {
	suite.Run(t, new(ReservesSuite))
}
