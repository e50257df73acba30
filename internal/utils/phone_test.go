package utils

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"whatsapp prefix", "whatsapp:+5491100000001", "5491100000001"},
		{"plus only", "+54 9 11 0000-0001", "5491100000001"},
		{"dots and parens", "(549) 11.0000.0001", "5491100000001"},
		{"already normalized", "5491100000001", "5491100000001"},
		{"surrounding whitespace", "  +5491100000001  ", "5491100000001"},
		{"empty", "", ""},
		{"no digits", "whatsapp:+", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePhone(tt.in)
			if got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	inputs := []string{
		"whatsapp:+5491100000001",
		"+1 (415) 523-8886",
		"5491100000001",
	}
	for _, in := range inputs {
		once := NormalizePhone(in)
		twice := NormalizePhone(once)
		if once != twice {
			t.Errorf("normalization not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
