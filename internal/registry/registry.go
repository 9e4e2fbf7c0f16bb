// Package registry holds the run-scoped mapping from resource names to the handles
// produced while provisioning them.
//
// A Registry is owned by a single orchestration run and is not safe for concurrent
// use. Once exported it is sealed and the resulting Snapshot is immutable.
package registry

import "sort"

// Name identifies a resource within one orchestration run (a token symbol, a
// contract id, a role).
type Name string

// Handle is the opaque address or reference returned for a provisioned resource.
type Handle string

// Entry is one registered resource.
type Entry struct {
	Name   Name   `json:"name" yaml:"name"`
	Handle Handle `json:"handle" yaml:"handle"`
}

// Registry is an append-only, write-once-per-name store.
type Registry struct {
	handles map[Name]Handle
	order   []Name
	sealed  bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{handles: make(map[Name]Handle)}
}

// Register records handle under name. A second registration of the same name fails
// with DuplicateResourceError and leaves the first one intact.
func (r *Registry) Register(name Name, handle Handle) error {
	if r.sealed {
		return SealedError{Name: name}
	}
	if existing, ok := r.handles[name]; ok {
		return DuplicateResourceError{Name: name, Existing: existing, Rejected: handle}
	}
	r.handles[name] = handle
	r.order = append(r.order, name)
	return nil
}

// Replace overwrites the handle of an already registered name. It is the only
// re-registration path; replacing an unknown name fails with UnknownResourceError.
func (r *Registry) Replace(name Name, handle Handle) error {
	if r.sealed {
		return SealedError{Name: name}
	}
	if _, ok := r.handles[name]; !ok {
		return UnknownResourceError{Name: name}
	}
	r.handles[name] = handle
	return nil
}

// Resolve returns the handle registered under name.
func (r *Registry) Resolve(name Name) (Handle, error) {
	handle, ok := r.handles[name]
	if !ok {
		return "", UnknownResourceError{Name: name}
	}
	return handle, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name Name) bool {
	_, ok := r.handles[name]
	return ok
}

// Len returns the number of registered resources.
func (r *Registry) Len() int {
	return len(r.order)
}

// Names returns registered names in registration order.
func (r *Registry) Names() []Name {
	out := make([]Name, len(r.order))
	copy(out, r.order)
	return out
}

// Export seals the registry and returns a read-only copy of its contents.
// Every later Register or Replace fails with SealedError.
func (r *Registry) Export() *Snapshot {
	r.sealed = true

	entries := make([]Entry, len(r.order))
	handles := make(map[Name]Handle, len(r.order))
	for i, name := range r.order {
		entries[i] = Entry{Name: name, Handle: r.handles[name]}
		handles[name] = r.handles[name]
	}
	return &Snapshot{entries: entries, handles: handles}
}

// Snapshot is the exported, immutable view of a completed run's registry.
type Snapshot struct {
	entries []Entry
	handles map[Name]Handle
}

// NewSnapshot builds a snapshot from entries, e.g. when loading a persisted address book.
func NewSnapshot(entries []Entry) (*Snapshot, error) {
	r := New()
	for _, e := range entries {
		if err := r.Register(e.Name, e.Handle); err != nil {
			return nil, err
		}
	}
	return r.Export(), nil
}

// Resolve returns the handle exported under name.
func (s *Snapshot) Resolve(name Name) (Handle, error) {
	handle, ok := s.handles[name]
	if !ok {
		return "", UnknownResourceError{Name: name}
	}
	return handle, nil
}

// MustResolve is Resolve for test setup code where a miss is a bug.
func (s *Snapshot) MustResolve(name Name) Handle {
	handle, err := s.Resolve(name)
	if err != nil {
		panic(err)
	}
	return handle
}

// Len returns the number of exported resources.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Entries returns the exported resources in registration order.
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Map returns a copy of the name to handle mapping.
func (s *Snapshot) Map() map[Name]Handle {
	out := make(map[Name]Handle, len(s.handles))
	for k, v := range s.handles {
		out[k] = v
	}
	return out
}

// SortedNames returns exported names in lexical order.
func (s *Snapshot) SortedNames() []Name {
	names := make([]Name, 0, len(s.entries))
	for _, e := range s.entries {
		names = append(names, e.Name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
