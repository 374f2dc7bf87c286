package style

import (
	"testing"
)

func TestParseColor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"hex_passthrough", "#1a2b3c", "#1a2b3c"},
		{"hex_shorthand", "#abc", "#aabbcc"},
		{"hex_shorthand_alpha", "#abcd", "#aabbccdd"},
		{"hex_alpha", "#11223344", "#11223344"},
		{"named_white", "white", "#ffffff"},
		{"named_upper", "NAVY", "#000080"},
		{"transparent", "transparent", "#00000000"},
		{"current", "currentColor", "currentcolor"},
		{"rgb_function", "rgb(255, 64, 0)", "#ff4000"},
		{"rgb_percent", "rgb(100%, 0%, 0%)", "#ff0000"},
		{"rgba_function", "RGBA(0, 0, 255, 0.2)", "#0000ff33"},
		{"rgb_space_syntax", "rgb(1 2 3 / 0)", "#01020300"},
		{"rgb_clamped", "rgb(300, -4, 12)", "#ff000c"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := parseColor(tc.input)
			if !ok {
				t.Fatalf("parseColor(%q) failed", tc.input)
			}
			if got.Hex() != tc.expected {
				t.Fatalf("parseColor(%q) = %q, expected %q", tc.input, got.Hex(), tc.expected)
			}
		})
	}
}

func TestParseColorRejects(t *testing.T) {
	t.Parallel()
	for _, input := range []string{"", "nope", "#abcde", "#ggg", "rgb(1, 2)", "rgb()", "hsl(0, 0%, 0%)"} {
		if got, ok := parseColor(input); ok {
			t.Fatalf("parseColor(%q) = %v, expected failure", input, got)
		}
	}
}
