package test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/node"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/transport"
)

// testClientTimeout is the timeout of one provisioning request sent to the test node
const testClientTimeout = 5 * time.Second

// StartNode serves a fresh simulated chain over HTTP for the duration of the test
// and returns the node and a transport connected to it.
func StartNode(t testing.TB) (*node.Server, *transport.HTTP) {
	t.Helper()

	srv := node.New(nil)
	// Create test server using adaptor to convert Fiber app to http.Handler
	ts := httptest.NewServer(adaptor.FiberApp(srv.App()))
	t.Cleanup(ts.Close)

	tr, err := transport.NewHTTP(transport.HTTPOptions{BaseURL: ts.URL, Timeout: testClientTimeout})
	if err != nil {
		t.Fatalf("failed to create node transport: %v", err)
	}
	return srv, tr
}
