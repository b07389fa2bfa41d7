package cmd

import (
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/kmahone/strum/internal/track"
)

func TestFormatTrack(t *testing.T) {
	tr := track.Track{
		Locator:  "https://example.com/watch?v=abc",
		Title:    "Some Song",
		Uploader: "Some Channel",
		Duration: 245,
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "default format",
			template: defaultSearchFormat,
			expected: "Some Song - Some Channel [04:05]",
		},
		{
			name:     "locator only",
			template: "{{.Locator}}",
			expected: "https://example.com/watch?v=abc",
		},
		{
			name:     "custom format",
			template: "{{.Uploader}}: {{.Title}}",
			expected: "Some Channel: Some Song",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := formatTrack(tr, tt.template)
			if err != nil {
				t.Fatalf("formatTrack: %v", err)
			}
			if result != tt.expected {
				t.Errorf("formatTrack(%q) = %q, expected %q", tt.template, result, tt.expected)
			}
		})
	}
}

func TestFormatTrackInvalidTemplate(t *testing.T) {
	if _, err := formatTrack(track.Track{}, "{{.Title"); err == nil {
		t.Error("expected error for malformed template")
	}
}

func TestPadToWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{
			name:     "no padding when width is 0",
			input:    "Hello",
			width:    0,
			expected: "Hello",
		},
		{
			name:     "no padding when width is negative",
			input:    "Hello",
			width:    -1,
			expected: "Hello",
		},
		{
			name:     "pad short text with spaces",
			input:    "Hi",
			width:    10,
			expected: "Hi        ",
		},
		{
			name:     "exact width unchanged",
			input:    "Hello",
			width:    5,
			expected: "Hello",
		},
		{
			name:     "truncate long text with ellipsis",
			input:    "This is a very long string that needs truncation",
			width:    20,
			expected: "This is a very lo...",
		},
		{
			name:     "handle unicode characters",
			input:    "日本語",
			width:    10,
			expected: "日本語    ",
		},
		{
			name:     "truncate unicode text",
			input:    "日本語のとても長い曲名",
			width:    10,
			expected: "日本語... ",
		},
		{
			name:     "empty string padding",
			input:    "",
			width:    5,
			expected: "     ",
		},
		{
			name:     "minimum width for truncation",
			input:    "Hello",
			width:    3,
			expected: "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := padToWidth(tt.input, tt.width)
			if result != tt.expected {
				t.Errorf("padToWidth(%q, %d) = %q, expected %q",
					tt.input, tt.width, result, tt.expected)
			}

			if tt.width > 0 {
				resultWidth := runewidth.StringWidth(result)
				if resultWidth != tt.width {
					t.Errorf("padToWidth(%q, %d) produced width %d, expected %d",
						tt.input, tt.width, resultWidth, tt.width)
				}
			}
		})
	}
}
