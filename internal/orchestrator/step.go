package orchestrator

import (
	"context"
	"fmt"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/transport"
)

// Step is one unit of provisioning work. Steps are descriptions: they declare what
// they read and what they produce, and return their results to the executor, which
// alone writes the registry.
type Step interface {
	// ID names the step in logs, reports and errors
	ID() string

	// Requires lists the resources that must be registered before the step runs
	Requires() []registry.Name

	// Produces lists the resources the step registers on success
	Produces() []registry.Name

	// Run performs the step with its resolved inputs
	Run(ctx context.Context, in Resolved, tr transport.Transport) (Result, error)
}

// Resolved maps each required name of a step to its registered handle.
type Resolved map[registry.Name]registry.Handle

// Subset returns the handles for names.
func (r Resolved) Subset(names []registry.Name) map[registry.Name]registry.Handle {
	if len(names) == 0 {
		return nil
	}
	out := make(map[registry.Name]registry.Handle, len(names))
	for _, n := range names {
		out[n] = r[n]
	}
	return out
}

// Output is a resource produced by a step.
type Output struct {
	Name   registry.Name   `json:"name"`
	Handle registry.Handle `json:"handle"`
}

// Receipt is the result of a call that produces no resource. It is not a
// resource, so it goes to the run report instead of the registry.
type Receipt struct {
	Action transport.ActionID `json:"action"`
	Handle registry.Handle    `json:"handle"`
}

// Result is what a step hands back to the executor.
type Result struct {
	Outputs  []Output
	Receipts []Receipt
}

// Deploy provisions a single named resource.
type Deploy struct {
	StepID string
	Action transport.ActionID
	Inputs []registry.Name
	Args   transport.Args
	Output registry.Name
}

var _ Step = &Deploy{}

func (d *Deploy) ID() string { return d.StepID }
func (d *Deploy) Requires() []registry.Name { return d.Inputs }
func (d *Deploy) Produces() []registry.Name { return []registry.Name{d.Output} }

// Run submits the deployment and returns the produced resource.
func (d *Deploy) Run(ctx context.Context, in Resolved, tr transport.Transport) (Result, error) {
	handle, err := tr.Provision(ctx, transport.Request{
		Action:       d.Action,
		Kind:         transport.KindDeploy,
		Args:         d.Args,
		Dependencies: in.Subset(d.Inputs),
	})
	if err != nil {
		return Result{}, &TransportError{Action: d.Action, Resource: d.Output, Err: err}
	}
	return Result{Outputs: []Output{{Name: d.Output, Handle: handle}}}, nil
}

// Call invokes an action on existing resources without producing a new one.
type Call struct {
	StepID string
	Action transport.ActionID
	Inputs []registry.Name
	Args   transport.Args
}

var _ Step = &Call{}

func (c *Call) ID() string { return c.StepID }
func (c *Call) Requires() []registry.Name { return c.Inputs }
func (c *Call) Produces() []registry.Name { return nil }

// Run submits the call and returns its receipt.
func (c *Call) Run(ctx context.Context, in Resolved, tr transport.Transport) (Result, error) {
	handle, err := tr.Provision(ctx, transport.Request{
		Action:       c.Action,
		Kind:         transport.KindCall,
		Args:         c.Args,
		Dependencies: in.Subset(c.Inputs),
	})
	if err != nil {
		return Result{}, &TransportError{Action: c.Action, Err: err}
	}
	return Result{Receipts: []Receipt{{Action: c.Action, Handle: handle}}}, nil
}

// Entry is one elementary action of a bulk step. An entry with an Output produces
// a resource; an entry without one is a call whose receipt is reported.
type Entry struct {
	Output registry.Name
	Action transport.ActionID
	Kind   transport.Kind
	Args   transport.Args
	Inputs []registry.Name
}

func (e Entry) kind() transport.Kind {
	if e.Kind != "" {
		return e.Kind
	}
	if e.Output != "" {
		return transport.KindDeploy
	}
	return transport.KindCall
}

// Bulk expands one logical resource class into many actions executed in one pass.
// Entries run in order and the first failure stops the step; the outputs of a
// failed bulk step are never registered.
type Bulk struct {
	StepID  string
	Entries []Entry
}

var _ Step = &Bulk{}

func (b *Bulk) ID() string { return b.StepID }

// Requires is the ordered union of the entries' inputs.
func (b *Bulk) Requires() []registry.Name {
	seen := make(map[registry.Name]struct{})
	var out []registry.Name
	for _, e := range b.Entries {
		for _, n := range e.Inputs {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

// Produces lists the outputs of the entries that have one.
func (b *Bulk) Produces() []registry.Name {
	var out []registry.Name
	for _, e := range b.Entries {
		if e.Output != "" {
			out = append(out, e.Output)
		}
	}
	return out
}

// Run executes every entry in order.
func (b *Bulk) Run(ctx context.Context, in Resolved, tr transport.Transport) (Result, error) {
	var res Result
	for _, e := range b.Entries {
		handle, err := tr.Provision(ctx, transport.Request{
			Action:       e.Action,
			Kind:         e.kind(),
			Args:         e.Args,
			Dependencies: in.Subset(e.Inputs),
		})
		if err != nil {
			return Result{}, &TransportError{Action: e.Action, Resource: e.Output, Err: err}
		}
		if e.Output != "" {
			res.Outputs = append(res.Outputs, Output{Name: e.Output, Handle: handle})
		} else {
			res.Receipts = append(res.Receipts, Receipt{Action: e.Action, Handle: handle})
		}
	}
	return res, nil
}

// Probe looks resources up in a pre-existing environment.
type Probe interface {
	// Lookup returns the handle of name, or false when the environment lacks it
	Lookup(ctx context.Context, name registry.Name) (registry.Handle, bool, error)

	// String names the probe in errors
	String() string
}

// Attach registers resources found in an external environment instead of
// provisioning them. It never submits anything to the transport.
type Attach struct {
	StepID string
	Names  []registry.Name
	Probe  Probe
}

var _ Step = &Attach{}

func (a *Attach) ID() string { return a.StepID }
func (a *Attach) Requires() []registry.Name { return nil }
func (a *Attach) Produces() []registry.Name { return a.Names }

// Run resolves every name through the probe.
func (a *Attach) Run(ctx context.Context, _ Resolved, _ transport.Transport) (Result, error) {
	var res Result
	for _, name := range a.Names {
		handle, ok, err := a.Probe.Lookup(ctx, name)
		if err != nil {
			return Result{}, fmt.Errorf("probe %s lookup %q: %w", a.Probe, name, err)
		}
		if !ok {
			return Result{}, EnvironmentMismatchError{Name: name, Probe: a.Probe.String()}
		}
		res.Outputs = append(res.Outputs, Output{Name: name, Handle: handle})
	}
	return res, nil
}
