package environment

import "fmt"

// Mode is how the test environment is obtained.
type Mode string

const (
	// ModeFresh deploys and configures a new market
	ModeFresh Mode = "fresh"
	// ModeExternal attaches to a market that already exists
	ModeExternal Mode = "external"
)

// ModeFromFork picks the mode from the fork setting: any non-empty value selects
// the external environment.
func ModeFromFork(fork string) Mode {
	if fork != "" {
		return ModeExternal
	}
	return ModeFresh
}

// ParseMode converts a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFresh, ModeExternal:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid mode: %q", s)
	}
}

func (m Mode) String() string {
	return string(m)
}
