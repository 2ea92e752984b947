// Package daterange resolves request windows (lookback, days, explicit
// dates) against a timezone-anchored "today".
package daterange

import (
	"strconv"
	"strings"
	"time"
)

// Layout is the wire format of every date in the system.
const Layout = "2006-01-02"

// DefaultLookbackDays applies to unrecognized lookback keys.
const DefaultLookbackDays = 30

// LookbackDays maps the closed set of lookback keys to day counts.
var LookbackDays = map[string]int{
	"7d":      7,
	"14d":     14,
	"30d":     30,
	"90d":     90,
	"alltime": 365,
	"1week":   7,
	"2weeks":  14,
	"4weeks":  30,
	"12weeks": 84,
	"full":    365,
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// Today returns midnight of the current day in loc.
func Today(c Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	now := c.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
}

// Format renders t as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Parse reads a YYYY-MM-DD date at midnight in loc.
func Parse(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(Layout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Valid reports whether s is a well-formed date.
func Valid(s string) bool {
	_, ok := Parse(s, time.UTC)
	return ok
}

// AddDays shifts a YYYY-MM-DD date by n days. Invalid input is returned
// unchanged.
func AddDays(s string, n int) string {
	t, ok := Parse(s, time.UTC)
	if !ok {
		return s
	}
	return Format(t.AddDate(0, 0, n))
}

// DaysBetween returns the whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// Params are the raw window parameters of a request.
type Params struct {
	Lookback  string
	Days      string
	StartDate string
	EndDate   string
}

// Range is a resolved window. Empty bounds are open and mean "use
// whatever data is available".
type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

// IsOpen reports whether neither bound is set.
func (r Range) IsOpen() bool { return r.Start == "" && r.End == "" }

// Window returns the n-day window ending on today (inclusive).
func Window(today time.Time, n int) Range {
	if n < 1 {
		n = 1
	}
	return Range{
		Start: Format(today.AddDate(0, 0, -(n - 1))),
		End:   Format(today),
		Label: strconv.Itoa(n) + "d",
	}
}

// Resolve applies the precedence lookback > days > explicit dates > full
// range.
func Resolve(p Params, today time.Time) Range {
	if lb := strings.TrimSpace(p.Lookback); lb != "" {
		n, ok := LookbackDays[strings.ToLower(lb)]
		if !ok {
			n = DefaultLookbackDays
			lb = strconv.Itoa(n) + "d"
		}
		r := Window(today, n)
		r.Label = lb
		return r
	}

	if d := strings.TrimSpace(p.Days); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 {
			return Window(today, n)
		}
	}

	start, end := "", ""
	if Valid(p.StartDate) {
		start = strings.TrimSpace(p.StartDate)
	}
	if Valid(p.EndDate) {
		end = strings.TrimSpace(p.EndDate)
	}
	if start != "" && end == "" {
		end = Format(today)
	}
	if start != "" && end != "" && start > end {
		start, end = end, start
	}
	if start == "" && end == "" {
		return Range{Label: "all"}
	}
	return Range{Start: start, End: end, Label: "custom"}
}
