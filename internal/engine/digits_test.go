package engine

import "testing"

func TestFirstDigitRun(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"no digits here", ""},
		{"12345", "12345"},
		{"ticket 12345", "12345"},
		{"12 then 345", "12"},
		{"x7", "7"},
		{"7x", "7"},
	}
	for _, tt := range tests {
		if got := firstDigitRun(tt.in); got != tt.want {
			t.Errorf("firstDigitRun(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSpaceFirstDigitRun(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"no digits", "no digits"},
		{"ticket 12345", "ticket 1 2 3 4 5"},
		{"ticket 12345 done", "ticket 1 2 3 4 5 done"},
		{"a 12 b 34", "a 1 2 b 34"}, // only the first run is rewritten
		{"7", "7"},
		{"12", "1 2"},
	}
	for _, tt := range tests {
		if got := spaceFirstDigitRun(tt.in); got != tt.want {
			t.Errorf("spaceFirstDigitRun(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
