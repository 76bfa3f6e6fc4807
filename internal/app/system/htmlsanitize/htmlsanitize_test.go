package htmlsanitize_test

import (
	"testing"

	"github.com/dalemusser/dormhub/internal/app/system/htmlsanitize"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Room 12 is ready", "Room 12 is ready"},
		{"strips script", "hello<script>alert('x')</script>", "hello"},
		{"strips tags keeps text", "<b>urgent</b> move", "urgent move"},
		{"trims", "  note  ", "note"},
		{"keeps apostrophes", "l'équipe B", "l'équipe B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlainTextMax(t *testing.T) {
	if got := htmlsanitize.PlainTextMax("abcdef", 3); got != "abc" {
		t.Errorf("got %q", got)
	}
	if got := htmlsanitize.PlainTextMax("éàü", 2); got != "éà" {
		t.Errorf("got %q", got)
	}
	if got := htmlsanitize.PlainTextMax("abc", 0); got != "abc" {
		t.Errorf("got %q", got)
	}
}
