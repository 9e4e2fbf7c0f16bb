// Package node serves a simulated chain over HTTP so that provisioning runs in
// other processes can submit requests to it through the HTTP transport.
package node

import (
	"errors"
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/node/middleware"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/transport"
)

// AccountsPath lists the accounts of the chain
const AccountsPath = "/api/v1/accounts"

// Server is a node HTTP server.
type Server struct {
	app   *fiber.App
	chain *transport.Simulated
}

// New creates a server for chain. A nil chain starts a fresh simulated one.
func New(chain *transport.Simulated) *Server {
	if chain == nil {
		chain = transport.NewSimulated()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})
	app.Use(middleware.Logger())

	// Health check
	app.Get(transport.HealthPath, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	register(app, &Handlers{chain: chain})

	return &Server{app: app, chain: chain}
}

// register mounts the v1 routes
func register(app *fiber.App, h *Handlers) {
	v1 := app.Group("/api/v1")
	v1.Post(strings.TrimPrefix(transport.ProvisionPath, "/api/v1"), h.Provision).Name("provision")
	v1.Get(strings.TrimPrefix(transport.RequestsPath, "/api/v1"), h.Requests).Name("requests")
	v1.Get(strings.TrimPrefix(AccountsPath, "/api/v1"), h.Accounts).Name("accounts")
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Chain returns the simulated chain behind the server.
func (s *Server) Chain() *transport.Simulated {
	return s.chain
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(transport.ErrorResponse{Error: err.Error()})
}
