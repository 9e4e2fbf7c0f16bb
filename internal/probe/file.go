package probe

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
)

// AddressBookFile is the YAML layout of an exported environment.
type AddressBookFile struct {
	Label     string           `yaml:"label"`
	RunID     string           `yaml:"run_id,omitempty"`
	Contracts []registry.Entry `yaml:"contracts"`
}

// LoadFile reads an address-book file into a static probe. Entry names must be
// unique.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read address book %s: %w", path, err)
	}

	var book AddressBookFile
	if err := yaml.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("parse address book %s: %w", path, err)
	}

	snap, err := registry.NewSnapshot(book.Contracts)
	if err != nil {
		return nil, fmt.Errorf("address book %s: %w", path, err)
	}
	return NewStatic(path, snap.Map()), nil
}

// WriteFile exports a snapshot as an address-book file that LoadFile can read.
func WriteFile(path, label, runID string, snap *registry.Snapshot) error {
	data, err := yaml.Marshal(AddressBookFile{
		Label:     label,
		RunID:     runID,
		Contracts: snap.Entries(),
	})
	if err != nil {
		return fmt.Errorf("encode address book: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write address book %s: %w", path, err)
	}
	return nil
}
