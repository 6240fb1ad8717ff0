package timeparsing

import (
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestParseCompactDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"-1d", testNow.AddDate(0, 0, -1)},
		{"1d", testNow.AddDate(0, 0, -1)}, // unsigned counts into the past
		{"+6h", testNow.Add(6 * time.Hour)},
		{"-2w", testNow.AddDate(0, 0, -14)},
		{"-3m", testNow.AddDate(0, -3, 0)},
		{"-1y", testNow.AddDate(-1, 0, 0)},
	}
	for _, tt := range tests {
		got, err := ParseCompactDuration(tt.in, testNow)
		if err != nil {
			t.Errorf("ParseCompactDuration(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseCompactDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseCompactDurationRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "1x", "d1", "one day", "2025-01-01"} {
		if _, err := ParseCompactDuration(in, testNow); err == nil {
			t.Errorf("ParseCompactDuration(%q) succeeded, want error", in)
		}
	}
}

func TestParseNatural(t *testing.T) {
	got, err := ParseNatural("yesterday", testNow)
	if err != nil {
		t.Fatalf("ParseNatural: %v", err)
	}
	if got.Day() != testNow.AddDate(0, 0, -1).Day() {
		t.Errorf("ParseNatural(yesterday) = %v, want previous day", got)
	}
}

func TestParseAbsolute(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-01-02T03:04:05Z", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2025-01-02", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseAbsolute(tt.in)
		if err != nil {
			t.Errorf("ParseAbsolute(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseAbsolute(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseLayering(t *testing.T) {
	// Each layer should win for its own syntax through the combined
	// entry point.
	for _, in := range []string{"-1d", "2 days ago", "2025-01-02T03:04:05Z"} {
		if _, err := Parse(in, testNow); err != nil {
			t.Errorf("Parse(%q): %v", in, err)
		}
	}
	if _, err := Parse("not a time", testNow); err == nil {
		t.Error("Parse(not a time) succeeded, want error")
	}
}
