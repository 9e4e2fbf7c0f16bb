// Package probe looks resources up in an environment that already exists: a fixed
// map, an address-book file, the address-book database or a pulumi stack.
package probe

import (
	"context"
	"sort"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
)

// Static answers lookups from a fixed map.
type Static struct {
	name    string
	handles map[registry.Name]registry.Handle
}

// NewStatic creates a static probe over a copy of handles.
func NewStatic(name string, handles map[registry.Name]registry.Handle) *Static {
	cp := make(map[registry.Name]registry.Handle, len(handles))
	for k, v := range handles {
		cp[k] = v
	}
	return &Static{name: name, handles: cp}
}

// Lookup returns the handle of name.
func (s *Static) Lookup(_ context.Context, name registry.Name) (registry.Handle, bool, error) {
	h, ok := s.handles[name]
	return h, ok, nil
}

// Names lists the known names in sorted order.
func (s *Static) Names() []registry.Name {
	out := make([]registry.Name, 0, len(s.handles))
	for n := range s.handles {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Static) String() string {
	return "static:" + s.name
}
