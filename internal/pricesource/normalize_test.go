package pricesource

import (
	"testing"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "The Effective Executive", "the effective executive"},
		{"diacritics stripped", "Café Münchhausen", "cafe munchhausen"},
		{"punctuation dropped", "Good to Great: Why Some Companies...", "good to great why some companies"},
		{"whitespace collapsed", "Deep   Work \n (Hardcover)", "deep work hardcover"},
		{"empty string", "", ""},
		{"only punctuation", "—!?", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeTitle(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestTitlesMatch(t *testing.T) {
	tests := []struct {
		name     string
		catalog  string
		scraped  string
		expected bool
	}{
		{"exact", "Atomic Habits", "Atomic Habits", true},
		{"scraped has subtitle", "Atomic Habits", "Atomic Habits: An Easy & Proven Way to Build Good Habits", true},
		{"catalog has subtitle", "Deep Work: Rules for Focused Success", "Deep Work", true},
		{"different products", "Atomic Habits", "The Lean Startup", false},
		{"empty scraped title", "Atomic Habits", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TitlesMatch(tt.catalog, tt.scraped); got != tt.expected {
				t.Errorf("TitlesMatch(%q, %q) = %v, want %v", tt.catalog, tt.scraped, got, tt.expected)
			}
		})
	}
}
