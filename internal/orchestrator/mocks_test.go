package orchestrator

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/transport"
)

// mockTransport is a testify mock of transport.Transport
type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Provision(ctx context.Context, req transport.Request) (registry.Handle, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(registry.Handle), args.Error(1)
}

func forAction(action transport.ActionID) interface{} {
	return mock.MatchedBy(func(req transport.Request) bool { return req.Action == action })
}

type mapProbe struct {
	handles map[registry.Name]registry.Handle
	err     error
}

func (p mapProbe) Lookup(_ context.Context, name registry.Name) (registry.Handle, bool, error) {
	if p.err != nil {
		return "", false, p.err
	}
	h, ok := p.handles[name]
	return h, ok, nil
}

func (p mapProbe) String() string { return "map" }

// countingStep produces fixed outputs and counts its runs.
type countingStep struct {
	id       string
	requires []registry.Name
	outputs  []Output
	err      error
	runs     int
}

func (s *countingStep) ID() string { return s.id }
func (s *countingStep) Requires() []registry.Name { return s.requires }

func (s *countingStep) Produces() []registry.Name {
	names := make([]registry.Name, len(s.outputs))
	for i, o := range s.outputs {
		names[i] = o.Name
	}
	return names
}

func (s *countingStep) Run(context.Context, Resolved, transport.Transport) (Result, error) {
	s.runs++
	if s.err != nil {
		return Result{}, s.err
	}
	return Result{Outputs: s.outputs}, nil
}

var errBoom = errors.New("boom")
