package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/logger"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/transport"
)

const instrumentationName = "github.com/TobaSenju/mahalend-contracts-periphery/internal/orchestrator"

// StepReport records the outcome of one completed step.
type StepReport struct {
	Index    int           `json:"index"`
	ID       string        `json:"id"`
	Outputs  []Output      `json:"outputs,omitempty"`
	Receipts []Receipt     `json:"receipts,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report is the journal of one executor run. On failure it holds the steps that
// completed before the failing one.
type Report struct {
	RunID    string        `json:"run_id"`
	Plan     string        `json:"plan"`
	Steps    []StepReport  `json:"steps"`
	Duration time.Duration `json:"duration"`
}

// Receipts returns every receipt of the run in order.
func (r *Report) Receipts() []Receipt {
	var out []Receipt
	for _, s := range r.Steps {
		out = append(out, s.Receipts...)
	}
	return out
}

// Executor runs plans step by step against a transport.
type Executor struct {
	tr     transport.Transport
	tracer trace.Tracer
}

// Option configures an Executor.
type Option func(*Executor)

// WithTracerProvider sets the provider of the per-step spans. The global provider
// is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Executor) { e.tracer = tp.Tracer(instrumentationName) }
}

// NewExecutor creates an executor submitting to tr.
func NewExecutor(tr transport.Transport, opts ...Option) *Executor {
	e := &Executor{tr: tr, tracer: otel.GetTracerProvider().Tracer(instrumentationName)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the plan's steps sequentially, registering each step's outputs in
// reg before the next step starts. The first failing step aborts the run with a
// *StepError; nothing is retried or rolled back and reg must then be discarded.
//
// A step whose inputs are not registered, or whose outputs differ from its
// declaration, is a bug in the plan and makes Run panic.
func (e *Executor) Run(ctx context.Context, plan Plan, reg *registry.Registry) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString(), Plan: plan.Name}

	ctx, span := e.tracer.Start(ctx, "plan "+plan.Name, trace.WithAttributes(
		attribute.String("plan.name", plan.Name),
		attribute.String("run.id", report.RunID),
		attribute.Int("plan.steps", len(plan.Steps)),
	))
	defer span.End()

	for i, step := range plan.Steps {
		sr, err := e.runStep(ctx, i, step, reg)
		if err != nil {
			report.Duration = time.Since(start)
			stepErr := &StepError{Index: i, Step: step.ID(), Err: err}
			span.RecordError(stepErr)
			span.SetStatus(codes.Error, stepErr.Error())
			logger.ErrorWithFields("provisioning step failed", map[string]interface{}{
				"run":   report.RunID,
				"plan":  plan.Name,
				"step":  step.ID(),
				"index": i,
				"kind":  ErrorKind(err),
				"error": err.Error(),
			})
			return report, stepErr
		}
		report.Steps = append(report.Steps, sr)
	}

	report.Duration = time.Since(start)
	logger.InfoWithFields("provisioning plan completed", map[string]interface{}{
		"run":       report.RunID,
		"plan":      plan.Name,
		"steps":     len(plan.Steps),
		"resources": reg.Len(),
		"duration":  report.Duration.String(),
	})
	return report, nil
}

func (e *Executor) runStep(ctx context.Context, index int, step Step, reg *registry.Registry) (StepReport, error) {
	ctx, span := e.tracer.Start(ctx, "step "+step.ID(), trace.WithAttributes(
		attribute.String("step.id", step.ID()),
		attribute.Int("step.index", index),
	))
	defer span.End()

	start := time.Now()
	in := resolveInputs(step, reg)

	logger.DebugWithFields("running provisioning step", map[string]interface{}{
		"step":     step.ID(),
		"index":    index,
		"requires": len(in),
	})

	res, err := step.Run(ctx, in, e.tr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return StepReport{}, err
	}

	checkOutputs(step, res.Outputs)
	if err := registerOutputs(reg, res.Outputs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return StepReport{}, err
	}

	sr := StepReport{
		Index:    index,
		ID:       step.ID(),
		Outputs:  res.Outputs,
		Receipts: res.Receipts,
		Duration: time.Since(start),
	}
	span.SetAttributes(
		attribute.Int("step.outputs", len(res.Outputs)),
		attribute.Int("step.receipts", len(res.Receipts)),
	)
	logger.InfoWithFields("provisioning step completed", map[string]interface{}{
		"step":     step.ID(),
		"index":    index,
		"outputs":  len(res.Outputs),
		"receipts": len(res.Receipts),
		"duration": sr.Duration.String(),
	})
	return sr, nil
}

// resolveInputs looks up every declared input of step and panics on a miss.
func resolveInputs(step Step, reg *registry.Registry) Resolved {
	requires := step.Requires()
	in := make(Resolved, len(requires))
	for _, name := range requires {
		handle, err := reg.Resolve(name)
		if err != nil {
			var unknown registry.UnknownResourceError
			if errors.As(err, &unknown) {
				panic(UnresolvedDependencyError{Step: step.ID(), Name: name})
			}
			panic(fmt.Sprintf("step %s: resolve %q: %v", step.ID(), name, err))
		}
		in[name] = handle
	}
	return in
}

// checkOutputs panics unless outputs match the step's declaration exactly.
func checkOutputs(step Step, outputs []Output) {
	declared := step.Produces()
	produced := make([]registry.Name, len(outputs))
	for i, o := range outputs {
		produced[i] = o.Name
	}

	mismatch := len(declared) != len(produced)
	for i := 0; !mismatch && i < len(declared); i++ {
		mismatch = declared[i] != produced[i]
	}
	if mismatch {
		panic(OutputMismatchError{Step: step.ID(), Declared: declared, Produced: produced})
	}
}

// registerOutputs registers all outputs, or none when one of them collides.
func registerOutputs(reg *registry.Registry, outputs []Output) error {
	seen := make(map[registry.Name]registry.Handle, len(outputs))
	for _, o := range outputs {
		if existing, err := reg.Resolve(o.Name); err == nil {
			return registry.DuplicateResourceError{Name: o.Name, Existing: existing, Rejected: o.Handle}
		}
		if existing, ok := seen[o.Name]; ok {
			return registry.DuplicateResourceError{Name: o.Name, Existing: existing, Rejected: o.Handle}
		}
		seen[o.Name] = o.Handle
	}
	for _, o := range outputs {
		if err := reg.Register(o.Name, o.Handle); err != nil {
			return err
		}
	}
	return nil
}
