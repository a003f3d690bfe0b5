package enums

import "fmt"

// DeliveryMethod identifies the carrier pickup network chosen at checkout.
type DeliveryMethod string

const (
	DeliveryMethodCDEK        DeliveryMethod = "cdek"
	DeliveryMethodOzon        DeliveryMethod = "ozon"
	DeliveryMethodWildberries DeliveryMethod = "wildberries"
)

// DefaultDeliveryMethod is preselected on a fresh checkout form.
const DefaultDeliveryMethod = DeliveryMethodCDEK

var validDeliveryMethods = []DeliveryMethod{
	DeliveryMethodCDEK,
	DeliveryMethodOzon,
	DeliveryMethodWildberries,
}

// String implements fmt.Stringer.
func (d DeliveryMethod) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryMethod.
func (d DeliveryMethod) IsValid() bool {
	for _, candidate := range validDeliveryMethods {
		if candidate == d {
			return true
		}
	}
	return false
}

// DeliveryMethods lists the selectable methods in display order.
func DeliveryMethods() []DeliveryMethod {
	out := make([]DeliveryMethod, len(validDeliveryMethods))
	copy(out, validDeliveryMethods)
	return out
}

// ParseDeliveryMethod converts raw input into a DeliveryMethod.
func ParseDeliveryMethod(value string) (DeliveryMethod, error) {
	for _, candidate := range validDeliveryMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery method %q", value)
}
