package language

import "testing"

func TestTranslation(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"eng", "en"},
		{"fre", "fr"},
		{"German", "de"},
		{"chi_sim", "zh"},
		{"xx", "xx"},
		{"klingon", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Translation(tt.input); got != tt.expected {
			t.Errorf("Translation(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestTesseract(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "eng"},
		{"en", "eng"},
		{"eng", "eng"},
		{"en+fr", "eng+fra"},
		{"ger + de", "deu"},
		{"zh", "chi_sim"},
		{"chi_tra", "chi_tra"},
		{"eng+osd", "eng+osd"},
	}
	for _, tt := range tests {
		if got := Tesseract(tt.input); got != tt.expected {
			t.Errorf("Tesseract(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("spa"); got != "Spanish" {
		t.Fatalf("DisplayName(spa) = %q", got)
	}
	if got := DisplayName("xx"); got != "XX" {
		t.Fatalf("DisplayName(xx) = %q", got)
	}
	if got := DisplayName(" "); got != "Unknown" {
		t.Fatalf("DisplayName(blank) = %q", got)
	}
}
