// Package environment decides once per process whether the test environment is
// deployed fresh or attached to, runs the matching plan and hands out the
// resulting read-only snapshot.
package environment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/catalog"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/logger"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/market"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/orchestrator"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/transport"
)

var (
	// ErrAlreadyRun is returned by a second Run on the same selector
	ErrAlreadyRun = errors.New("environment already provisioned")
	// ErrNoProbe means external mode was selected without a probe
	ErrNoProbe = errors.New("external mode requires a probe")
)

// Result is the outcome of a run. Snapshot is nil when the run failed.
type Result struct {
	Label    string
	Mode     Mode
	Snapshot *registry.Snapshot
	Report   *orchestrator.Report
	Err      error
}

// RunID returns the id of the run, empty when nothing ran.
func (r *Result) RunID() string {
	if r.Report == nil {
		return ""
	}
	return r.Report.RunID
}

// Sink persists run results.
type Sink interface {
	Save(ctx context.Context, res *Result) error
}

// Selector builds the environment for one mode.
type Selector struct {
	mode      Mode
	label     string
	catalog   *catalog.Catalog
	transport transport.Transport
	probe     orchestrator.Probe
	sink      Sink
	execOpts  []orchestrator.Option

	mu  sync.Mutex
	ran bool
}

// Option configures a Selector.
type Option func(*Selector)

// WithLabel names the environment in logs and the address book.
func WithLabel(label string) Option {
	return func(s *Selector) { s.label = label }
}

// WithCatalog sets the market description deployed in fresh mode.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Selector) { s.catalog = c }
}

// WithTransport sets the transport of fresh mode. Defaults to an in-process
// simulated chain.
func WithTransport(tr transport.Transport) Option {
	return func(s *Selector) { s.transport = tr }
}

// WithProbe sets the probe external mode attaches through.
func WithProbe(p orchestrator.Probe) Option {
	return func(s *Selector) { s.probe = p }
}

// WithSink persists every run, failed ones included.
func WithSink(sink Sink) Option {
	return func(s *Selector) { s.sink = sink }
}

// WithExecutorOptions passes options to the plan executor.
func WithExecutorOptions(opts ...orchestrator.Option) Option {
	return func(s *Selector) { s.execOpts = append(s.execOpts, opts...) }
}

// NewSelector creates a selector for mode.
func NewSelector(mode Mode, opts ...Option) *Selector {
	s := &Selector{mode: mode, label: "local"}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	if s.transport == nil {
		s.transport = transport.NewSimulated()
	}
	return s
}

// Mode returns the selected mode.
func (s *Selector) Mode() Mode {
	return s.mode
}

// Plan returns the plan of the selected mode.
func (s *Selector) Plan() (orchestrator.Plan, error) {
	switch s.mode {
	case ModeFresh:
		return market.FreshPlan(s.catalog)
	case ModeExternal:
		if s.probe == nil {
			return orchestrator.Plan{}, ErrNoProbe
		}
		return market.ExternalPlan(s.probe), nil
	default:
		return orchestrator.Plan{}, fmt.Errorf("invalid mode: %q", s.mode)
	}
}

// Run executes the plan of the selected mode exactly once. On success the result
// carries the exported snapshot; on failure it carries the report of the steps
// that completed and no snapshot, and the error identifies the failing step.
func (s *Selector) Run(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ran {
		return nil, ErrAlreadyRun
	}
	s.ran = true

	plan, err := s.Plan()
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s plan: %w", plan.Name, err)
	}

	logger.InfoWithFields("provisioning test environment", map[string]interface{}{
		"label": s.label,
		"mode":  s.mode.String(),
		"plan":  plan.Name,
		"steps": len(plan.Steps),
	})

	reg := registry.New()
	report, runErr := orchestrator.NewExecutor(s.transport, s.execOpts...).Run(ctx, plan, reg)

	res := &Result{Label: s.label, Mode: s.mode, Report: report, Err: runErr}
	if runErr == nil {
		res.Snapshot = reg.Export()
	}

	if s.sink != nil {
		if err := s.sink.Save(ctx, res); err != nil {
			saveErr := fmt.Errorf("save run: %w", err)
			if runErr != nil {
				saveErr = errors.Join(runErr, saveErr)
			}
			// An unrecorded environment cannot be attached to later.
			res.Snapshot = nil
			res.Err = saveErr
			return res, saveErr
		}
	}
	if runErr != nil {
		return res, runErr
	}

	logger.InfoWithFields("test environment ready", map[string]interface{}{
		"label":     s.label,
		"mode":      s.mode.String(),
		"run":       res.RunID(),
		"resources": res.Snapshot.Len(),
	})
	return res, nil
}
