// Package timeparsing resolves the time expressions accepted by --since
// flags.
//
// Parsing is layered: compact durations first (-1d, -6h), then natural
// language ("yesterday", "2 days ago"), then absolute timestamps
// (RFC 3339 or YYYY-MM-DD). The first layer that recognizes the input
// wins.
package timeparsing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// compactDurationRe matches [+-]?(\d+)([hdwmy]): -1d, +6h, 2w, 3m, 1y.
var compactDurationRe = regexp.MustCompile(`^([+-]?)(\d+)([hdwmy])$`)

// Parse resolves expr against now. Durations without a sign are taken as
// past offsets: "--since 1d" means one day ago.
func Parse(expr string, now time.Time) (time.Time, error) {
	if t, err := ParseCompactDuration(expr, now); err == nil {
		return t, nil
	}
	if t, err := ParseNatural(expr, now); err == nil {
		return t, nil
	}
	if t, err := ParseAbsolute(expr); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time expression %q (want a duration like -1d, a phrase like \"2 days ago\", or an RFC 3339 timestamp)", expr)
}

// IsCompactDuration reports whether s matches the compact duration form.
func IsCompactDuration(s string) bool {
	return compactDurationRe.MatchString(s)
}

// ParseCompactDuration parses [+-]?(\d+)([hdwmy]) relative to now. An
// unsigned value counts into the past, matching what a --since flag
// means.
func ParseCompactDuration(s string, now time.Time) (time.Time, error) {
	matches := compactDurationRe.FindStringSubmatch(s)
	if matches == nil {
		return time.Time{}, fmt.Errorf("not a compact duration: %q", s)
	}
	amount, err := strconv.Atoi(matches[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration amount: %q", matches[2])
	}
	if matches[1] != "+" {
		amount = -amount
	}
	return applyDuration(now, amount, matches[3]), nil
}

func applyDuration(base time.Time, amount int, unit string) time.Time {
	switch unit {
	case "h":
		return base.Add(time.Duration(amount) * time.Hour)
	case "d":
		return base.AddDate(0, 0, amount)
	case "w":
		return base.AddDate(0, 0, amount*7)
	case "m":
		return base.AddDate(0, amount, 0)
	case "y":
		return base.AddDate(amount, 0, 0)
	}
	return base
}

var naturalParser = func() *when.Parser {
	p := when.New(nil)
	p.Add(en.All...)
	p.Add(common.All...)
	return p
}()

// ParseNatural resolves a natural-language expression ("yesterday",
// "2 days ago", "last monday") relative to now.
func ParseNatural(expr string, now time.Time) (time.Time, error) {
	result, err := naturalParser.Parse(expr, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q: %w", expr, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("not a natural-language time: %q", expr)
	}
	return result.Time, nil
}

// absoluteLayouts are tried in order for absolute timestamps.
var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseAbsolute parses an absolute timestamp. Layouts without a zone are
// taken as UTC; date-only input means midnight UTC.
func ParseAbsolute(s string) (time.Time, error) {
	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Location() == time.UTC || layout == time.RFC3339 {
				return t, nil
			}
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("not an absolute timestamp: %q", s)
}
