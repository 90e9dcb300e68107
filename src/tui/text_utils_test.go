package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestCell(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		elide bool
		want  string
	}{
		{"pads short text", "send", 6, false, "send  "},
		{"cuts long text", "FAILURE", 4, false, "FAIL"},
		{"elides long text", "Build failed in acme/app #3", 10, true, "Build f..."},
		{"trims surrounding space", "  skip ", 5, false, "skip "},
		{"wide runes", "ビルド失敗", 7, true, "ビル..."},
		{"zero width", "send", 0, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cell(tt.in, tt.width, tt.elide)
			if got != tt.want {
				t.Errorf("cell(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
			}
			if w := ansi.StringWidth(got); w != tt.width {
				t.Errorf("cell(%q, %d) width = %d", tt.in, tt.width, w)
			}
		})
	}
}

func TestWrap_Fits(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"words", "Build failed in acme/app #3 after the nightly dependency update"},
		{"recipients", "alice@example.com, bob@example.com, release-managers@example.com"},
		{"message id", "<20260301120000.4f1c2a9e-7d0b-4b8e-9c43-0a5d2f7e6b11@ci.example.com>"},
		{"url", "See <https://ci.example.com/job/acme/job/app/3/changes>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrap(tt.text, 20)
			for i, line := range strings.Split(got, "\n") {
				if w := ansi.StringWidth(line); w > 20 {
					t.Errorf("line %d is %d cells wide: %q", i, w, line)
				}
			}
			if strings.Join(strings.Fields(got), "") != strings.Join(strings.Fields(tt.text), "") {
				t.Errorf("wrap(%q) lost content: %q", tt.text, got)
			}
		})
	}
}

func TestWrap_ZeroWidth(t *testing.T) {
	if got := wrap("unchanged", 0); got != "unchanged" {
		t.Errorf("wrap with zero width = %q", got)
	}
}

func TestCleanLogText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"\x1b[31mERROR\x1b[0m boom", "ERROR boom"},
		{"progress 50%\r", "progress 50%"},
		{"a\tb", "a    b"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := CleanLogText(tt.in); got != tt.want {
			t.Errorf("CleanLogText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
