// Package test provides a reusable integration suite backed by a provisioned
// lending-market environment.
//
// The suite provisions the environment once in SetupSuite and every test of
// the suite reads the same immutable snapshot. The mode follows the FORK
// environment variable unless the embedding suite sets it:
//
//   - fresh mode deploys the market on a simulated chain, in-process or behind a
//     test node reached over HTTP
//   - external mode attaches through the configured Probe
//
// Example Usage:
//
//	type PoolSuite struct {
//	    test.Suite
//	}
//
//	func (s *PoolSuite) TestPoolIsDeployed() {
//	    s.NotEmpty(s.Resolve(market.Pool))
//	}
//
//	func TestPool(t *testing.T) {
//	    suite.Run(t, new(PoolSuite))
//	}
package test
