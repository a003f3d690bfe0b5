package enums

import "fmt"

// SubmitState tracks the order submission lifecycle of one checkout form.
type SubmitState string

const (
	SubmitStateIdle       SubmitState = "idle"
	SubmitStateSubmitting SubmitState = "submitting"
	SubmitStateSubmitted  SubmitState = "submitted"
)

var validSubmitStates = []SubmitState{
	SubmitStateIdle,
	SubmitStateSubmitting,
	SubmitStateSubmitted,
}

// String implements fmt.Stringer.
func (s SubmitState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SubmitState.
func (s SubmitState) IsValid() bool {
	for _, candidate := range validSubmitStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubmitState converts raw input into a SubmitState.
func ParseSubmitState(value string) (SubmitState, error) {
	for _, candidate := range validSubmitStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid submit state %q", value)
}
