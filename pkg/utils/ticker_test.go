package utils

import "testing"

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"AAPL", "AAPL"},
		{"aapl", "AAPL"},
		{" nvda ", "NVDA"},
		{"$TSLA", "TSLA"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeSymbol(tt.input); got != tt.expected {
				t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsTickerLike(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"AAPL", true},
		{"msft", true},
		{"$nvda", true},
		{"GOOGL", true},
		{"TOOLONG", false},
		{"BRK.B", false},
		{"apple stock", false},
		{"", false},
		{"   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsTickerLike(tt.input); got != tt.want {
				t.Errorf("IsTickerLike(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeQuery(t *testing.T) {
	if got := NormalizeQuery("  Should I   BUY Apple\tnow? "); got != "should i buy apple now?" {
		t.Errorf("NormalizeQuery = %q", got)
	}
}
