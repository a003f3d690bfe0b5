package contact

import "testing"

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"89001234567", "+79001234567"},
		{"79001234567", "+79001234567"},
		{"9001234567", "+79001234567"},
		{"+7 (900) 123-45-67", "+79001234567"},
		{"8 900 123 45 67", "+79001234567"},
		{"12345", "12345"},
		{"", ""},
		{"abc", "abc"},
		{"19001234567", "19001234567"},
		{"+1 900 123 45 67 8", "+1 900 123 45 67 8"},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.raw); got != tt.want {
			t.Fatalf("NormalizePhone(%q): expected %q got %q", tt.raw, tt.want, got)
		}
	}
}

func TestNormalizePhoneIsIdempotent(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"89001234567", "79001234567", "9001234567", "+7 900 123-45-67", "12345", "1"} {
		once := NormalizePhone(raw)
		if twice := NormalizePhone(once); twice != once {
			t.Fatalf("normalize not idempotent for %q: %q then %q", raw, once, twice)
		}
	}
}

func TestIsValidPhone(t *testing.T) {
	t.Parallel()

	valid := []string{"+7 900 123-45-67", "89001234567", "79001234567", "9001234567"}
	for _, raw := range valid {
		if !IsValidPhone(raw) {
			t.Fatalf("expected %q to be valid", raw)
		}
	}
	invalidPhones := []string{"900", "", "19001234567", "+44 20 7946 0958"}
	for _, raw := range invalidPhones {
		if IsValidPhone(raw) {
			t.Fatalf("expected %q to be invalid", raw)
		}
	}
}
