package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
	"github.com/TobaSenju/mahalend-contracts-periphery/internal/transport"
)

// UnresolvedDependencyError means a step ran before one of its inputs was registered.
// The executor panics with this value: it is an ordering bug in the plan, not bad input.
type UnresolvedDependencyError struct {
	Step string
	Name registry.Name
}

func (e UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("step %s: dependency %q not registered", e.Step, e.Name)
}

// OutputMismatchError means a step produced something other than what it declared.
// Like UnresolvedDependencyError it is raised with panic.
type OutputMismatchError struct {
	Step     string
	Declared []registry.Name
	Produced []registry.Name
}

func (e OutputMismatchError) Error() string {
	return fmt.Sprintf("step %s: declared outputs %v, produced %v", e.Step, e.Declared, e.Produced)
}

// TransportError wraps a failed provisioning request. The transport's error is kept
// unchanged and reachable through errors.Is / errors.As.
type TransportError struct {
	Action   transport.ActionID
	Resource registry.Name
	Err      error
}

func (e *TransportError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("provision %s (%s): %v", e.Action, e.Resource, e.Err)
	}
	return fmt.Sprintf("provision %s: %v", e.Action, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// EnvironmentMismatchError means the external environment lacks an expected resource.
type EnvironmentMismatchError struct {
	Name  registry.Name
	Probe string
}

func (e EnvironmentMismatchError) Error() string {
	return fmt.Sprintf("external environment (%s) has no resource %q", e.Probe, e.Name)
}

// StepError identifies the step that aborted a run.
type StepError struct {
	Index int
	Step  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed [%s]: %v", e.Index+1, e.Step, ErrorKind(e.Err), e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// PlanError is a static inconsistency found by Plan.Validate.
type PlanError struct {
	Step   string
	Reason string
}

func (e PlanError) Error() string {
	return fmt.Sprintf("plan step %s: %s", e.Step, e.Reason)
}

// Error kinds reported by ErrorKind
const (
	KindTransport           = "transport"
	KindDuplicateResource   = "duplicate-resource"
	KindUnknownResource     = "unknown-resource"
	KindEnvironmentMismatch = "environment-mismatch"
	KindUnresolved          = "unresolved-dependency"
	KindOther               = "other"
)

// ErrorKind classifies err into one of the run error kinds.
func ErrorKind(err error) string {
	var (
		tErr  *TransportError
		dup   registry.DuplicateResourceError
		unk   registry.UnknownResourceError
		miss  EnvironmentMismatchError
		unres UnresolvedDependencyError
	)
	switch {
	case errors.As(err, &miss):
		return KindEnvironmentMismatch
	case errors.As(err, &tErr):
		return KindTransport
	case errors.As(err, &dup):
		return KindDuplicateResource
	case errors.As(err, &unres):
		return KindUnresolved
	case errors.As(err, &unk):
		return KindUnknownResource
	default:
		return KindOther
	}
}

func joinNames(names []registry.Name) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
