package probe

import (
	"context"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
)

// Lookuper is the read side of the address-book repository.
type Lookuper interface {
	Lookup(ctx context.Context, label, name string) (string, bool, error)
}

// AddressBook resolves names against the latest completed deployment persisted
// under a label.
type AddressBook struct {
	repo  Lookuper
	label string
}

// NewAddressBook creates an address-book probe for label.
func NewAddressBook(repo Lookuper, label string) *AddressBook {
	return &AddressBook{repo: repo, label: label}
}

// Lookup returns the persisted handle of name.
func (a *AddressBook) Lookup(ctx context.Context, name registry.Name) (registry.Handle, bool, error) {
	handle, ok, err := a.repo.Lookup(ctx, a.label, string(name))
	if err != nil || !ok {
		return "", false, err
	}
	return registry.Handle(handle), true, nil
}

func (a *AddressBook) String() string {
	return "addressbook:" + a.label
}
