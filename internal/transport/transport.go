// Package transport defines the provisioning transport the orchestrator submits
// requests to, with an in-memory simulated chain and an HTTP client for a remote node.
package transport

import (
	"context"
	"sort"
	"strconv"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
)

// ActionID names the provisioning action to invoke (a contract to deploy or a method to call).
type ActionID string

// Kind classifies what a request produces.
type Kind string

const (
	// KindDeploy creates a new resource and returns its address
	KindDeploy Kind = "deploy"
	// KindCall mutates an existing resource and returns a transaction hash
	KindCall Kind = "call"
	// KindAccount returns a pre-funded account of the environment
	KindAccount Kind = "account"
)

// Args are the static configuration values of one action.
type Args map[string]string

// Int returns the integer value stored under key.
func (a Args) Int(key string) (int, error) {
	return strconv.Atoi(a[key])
}

// Keys returns the argument keys in lexical order.
func (a Args) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Request is one provisioning request.
type Request struct {
	Action       ActionID                          `json:"action"`
	Kind         Kind                              `json:"kind"`
	Args         Args                              `json:"args,omitempty"`
	Dependencies map[registry.Name]registry.Handle `json:"dependencies,omitempty"`
}

// Transport submits provisioning requests. Provision blocks until the request has
// been executed; errors are returned as-is and never retried by callers.
type Transport interface {
	Provision(ctx context.Context, req Request) (registry.Handle, error)
}
