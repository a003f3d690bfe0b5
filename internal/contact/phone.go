package contact

import "strings"

func digitsOf(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone rewrites a Russian phone number as +7XXXXXXXXXX. Inputs with a digit
// count other than 10 or 11 are returned unchanged.
func NormalizePhone(raw string) string {
	digits := digitsOf(raw)
	switch {
	case len(digits) == 11 && digits[0] == '8':
		return "+7" + digits[1:]
	case len(digits) == 11 && digits[0] == '7':
		return "+" + digits
	case len(digits) == 10:
		return "+7" + digits
	default:
		return raw
	}
}

// IsValidPhone reports whether raw normalizes to an 11 digit number starting with 7.
func IsValidPhone(raw string) bool {
	digits := digitsOf(NormalizePhone(raw))
	return len(digits) == 11 && digits[0] == '7'
}
