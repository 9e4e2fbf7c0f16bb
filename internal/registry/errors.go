package registry

import "fmt"

// DuplicateResourceError means a name was registered twice.
type DuplicateResourceError struct {
	Name     Name
	Existing Handle
	Rejected Handle
}

func (e DuplicateResourceError) Error() string {
	return fmt.Sprintf("resource %q already registered at %s (rejected %s)", e.Name, e.Existing, e.Rejected)
}

// UnknownResourceError means a lookup for a name that was never registered.
type UnknownResourceError struct {
	Name Name
}

func (e UnknownResourceError) Error() string {
	return fmt.Sprintf("resource %q not registered", e.Name)
}

// SealedError means a write was attempted after the registry was exported.
type SealedError struct {
	Name Name
}

func (e SealedError) Error() string {
	return fmt.Sprintf("registry exported, cannot write %q", e.Name)
}
