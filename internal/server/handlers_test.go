package server

import "testing"

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"absent uses default", "", 10},
		{"explicit value kept", "25", 25},
		{"unparseable uses default", "abc", 10},
		{"zero uses default", "0", 10},
		{"negative uses default", "-5", 10},
		{"oversized clamped to max", "10000000", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseLimit(tt.raw, 10, 100); got != tt.want {
				t.Errorf("parseLimit(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}
