package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
)

// Node API paths shared by the HTTP transport and the node server
const (
	// HealthPath answers liveness probes
	HealthPath = "/health"
	// ProvisionPath accepts a Request and answers a ProvisionResponse
	ProvisionPath = "/api/v1/provision"
	// RequestsPath lists every request the node has received
	RequestsPath = "/api/v1/requests"
)

// DefaultTimeout is the default timeout of one provisioning request
const DefaultTimeout = 30 * time.Second

// ProvisionResponse is the node's answer to a provisioning request.
type ProvisionResponse struct {
	Handle registry.Handle `json:"handle"`
}

// ErrorResponse is the body of every non-2xx node answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NodeError is returned when the node rejects a request.
type NodeError struct {
	Status  int
	Message string
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node returned %d: %s", e.Status, e.Message)
}

// HTTPOptions configures the HTTP transport
type HTTPOptions struct {
	// BaseURL is the node's base URL
	BaseURL string

	// Timeout bounds each request when the context has no deadline
	Timeout time.Duration
}

// HTTP submits requests to a remote node.
type HTTP struct {
	baseURL string
	timeout time.Duration
}

var _ Transport = &HTTP{}

// NewHTTP creates an HTTP transport for the node at opts.BaseURL.
func NewHTTP(opts HTTPOptions) (*HTTP, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("node base URL cannot be empty")
	}
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid node base URL: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &HTTP{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
	}, nil
}

// Provision posts req to the node and waits for the produced handle.
func (h *HTTP) Provision(ctx context.Context, req Request) (registry.Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	agent := fiber.Post(h.baseURL + ProvisionPath)
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(h.timeout)
	}
	agent.Set("Accept", "application/json")
	agent.JSON(req)

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return "", fmt.Errorf("error sending request: %w", errs[0])
	}

	if status < 200 || status >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
			errResp.Error = string(body)
		}
		return "", &NodeError{Status: status, Message: errResp.Error}
	}

	var resp ProvisionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}
	if resp.Handle == "" {
		return "", fmt.Errorf("node returned an empty handle for %s", req.Action)
	}
	return resp.Handle, nil
}
