package enums

import "fmt"

// Mode selects which surface an engine session was opened for.
type Mode string

const (
	ModeStorefront Mode = "storefront"
	ModeAdmin      Mode = "admin"
)

var validModes = []Mode{
	ModeStorefront,
	ModeAdmin,
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known Mode.
func (m Mode) IsValid() bool {
	for _, candidate := range validModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMode converts raw input into a Mode.
func ParseMode(value string) (Mode, error) {
	for _, candidate := range validModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid mode %q", value)
}
