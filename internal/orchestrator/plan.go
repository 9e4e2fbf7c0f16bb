package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
)

// Plan is the fixed, hand-ordered list of steps of one run. The order is the
// dependency order; nothing reorders it at run time.
type Plan struct {
	Name  string
	Steps []Step
}

// StepInfo describes one step of a plan.
type StepInfo struct {
	Index    int             `json:"index"`
	ID       string          `json:"id"`
	Requires []registry.Name `json:"requires,omitempty"`
	Produces []registry.Name `json:"produces,omitempty"`
}

// Describe lists the plan's steps with their declared inputs and outputs.
func (p Plan) Describe() []StepInfo {
	out := make([]StepInfo, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = StepInfo{Index: i, ID: s.ID(), Requires: s.Requires(), Produces: s.Produces()}
	}
	return out
}

// StepIDs returns the step ids in execution order.
func (p Plan) StepIDs() []string {
	ids := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		ids[i] = s.ID()
	}
	return ids
}

// Outputs returns every resource the plan produces, in production order.
func (p Plan) Outputs() []registry.Name {
	var out []registry.Name
	for _, s := range p.Steps {
		out = append(out, s.Produces()...)
	}
	return out
}

// Validate checks statically that every step's inputs are produced by an earlier
// step (or were seeded), that outputs are unique across the plan and that step ids
// are unique. All problems are returned joined.
func (p Plan) Validate(seeded ...registry.Name) error {
	available := make(map[registry.Name]string, len(seeded))
	for _, n := range seeded {
		available[n] = "seed"
	}
	ids := make(map[string]struct{}, len(p.Steps))

	var errs []error
	for _, s := range p.Steps {
		id := s.ID()
		if id == "" {
			errs = append(errs, PlanError{Step: "<unnamed>", Reason: "empty step id"})
		}
		if _, dup := ids[id]; dup {
			errs = append(errs, PlanError{Step: id, Reason: "duplicate step id"})
		}
		ids[id] = struct{}{}

		var missing []registry.Name
		for _, n := range s.Requires() {
			if _, ok := available[n]; !ok {
				missing = append(missing, n)
			}
		}
		if len(missing) > 0 {
			errs = append(errs, PlanError{Step: id, Reason: "requires unproduced " + joinNames(missing)})
		}

		for _, n := range s.Produces() {
			if n == "" {
				errs = append(errs, PlanError{Step: id, Reason: "empty output name"})
				continue
			}
			if by, ok := available[n]; ok {
				errs = append(errs, PlanError{Step: id, Reason: fmt.Sprintf("output %q already produced by %s", n, by)})
				continue
			}
			available[n] = id
		}
	}
	return errors.Join(errs...)
}

// DOT exports the plan as Graphviz DOT text, one node per step and one edge per
// dependency on an earlier step.
func (p Plan) DOT() string {
	var b strings.Builder
	b.WriteString("digraph plan {\n")
	b.WriteString("  rankdir=LR;\n")
	for i, s := range p.Steps {
		b.WriteString(fmt.Sprintf("  s%d [label=\"%d. %s\"];\n", i, i+1, strings.ReplaceAll(s.ID(), "\"", "\\\"")))
	}
	for _, e := range p.edges() {
		b.WriteString(fmt.Sprintf("  s%d -> s%d;\n", e[0], e[1]))
	}
	b.WriteString("}\n")
	return b.String()
}

// Mermaid exports the plan as Mermaid graph text.
func (p Plan) Mermaid() string {
	var b strings.Builder
	b.WriteString("graph TD\n")
	for i, s := range p.Steps {
		b.WriteString(fmt.Sprintf("    s%d[\"%d. %s\"]\n", i, i+1, strings.ReplaceAll(s.ID(), "\"", "\\\"")))
	}
	for _, e := range p.edges() {
		b.WriteString(fmt.Sprintf("    s%d --> s%d\n", e[0], e[1]))
	}
	return b.String()
}

// edges returns (producer, consumer) step index pairs, deduplicated.
func (p Plan) edges() [][2]int {
	producer := make(map[registry.Name]int)
	seen := make(map[[2]int]struct{})
	var out [][2]int
	for i, s := range p.Steps {
		for _, n := range s.Requires() {
			from, ok := producer[n]
			if !ok {
				continue
			}
			e := [2]int{from, i}
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, e)
		}
		for _, n := range s.Produces() {
			if _, ok := producer[n]; !ok {
				producer[n] = i
			}
		}
	}
	return out
}
