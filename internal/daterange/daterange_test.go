package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func istanbul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)
	return loc
}

func TestTodayIsAnchoredToLocation(t *testing.T) {
	loc := istanbul(t)
	// 22:30 UTC is already the next day in Istanbul (UTC+3).
	clock := FixedClock{T: time.Date(2024, 3, 9, 22, 30, 0, 0, time.UTC)}
	assert.Equal(t, "2024-03-10", Format(Today(clock, loc)))
	assert.Equal(t, "2024-03-09", Format(Today(clock, time.UTC)))
}

func TestResolvePrecedence(t *testing.T) {
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	r := Resolve(Params{Lookback: "7d", Days: "60", StartDate: "2024-01-01", EndDate: "2024-01-31"}, today)
	assert.Equal(t, Range{Start: "2024-03-04", End: "2024-03-10", Label: "7d"}, r)

	r = Resolve(Params{Days: "14", StartDate: "2024-01-01"}, today)
	assert.Equal(t, "2024-02-26", r.Start)
	assert.Equal(t, "2024-03-10", r.End)

	r = Resolve(Params{StartDate: "2024-01-01", EndDate: "2024-01-31"}, today)
	assert.Equal(t, Range{Start: "2024-01-01", End: "2024-01-31", Label: "custom"}, r)

	r = Resolve(Params{}, today)
	assert.True(t, r.IsOpen())
	assert.Equal(t, "all", r.Label)
}

func TestResolveFallbacks(t *testing.T) {
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	r := Resolve(Params{Lookback: "fortnight"}, today)
	assert.Equal(t, "2024-02-10", r.Start, "unknown lookback falls back to 30 days")
	assert.Equal(t, "2024-03-10", r.End)

	r = Resolve(Params{StartDate: "2024-03-01"}, today)
	assert.Equal(t, "2024-03-10", r.End, "missing end defaults to today")

	r = Resolve(Params{StartDate: "not-a-date", EndDate: "2024-13-45"}, today)
	assert.True(t, r.IsOpen())

	r = Resolve(Params{Days: "-3"}, today)
	assert.True(t, r.IsOpen())
}

func TestLookbackTable(t *testing.T) {
	assert.Equal(t, 84, LookbackDays["12weeks"])
	assert.Equal(t, 365, LookbackDays["alltime"])
	assert.Equal(t, 365, LookbackDays["full"])
	assert.Len(t, LookbackDays, 10)
}

func TestDaysBetween(t *testing.T) {
	loc := istanbul(t)
	a := time.Date(2024, 2, 24, 0, 0, 0, 0, loc)
	b := time.Date(2024, 3, 10, 0, 0, 0, 0, loc)
	assert.Equal(t, 15, DaysBetween(a, b))
	assert.Equal(t, -15, DaysBetween(b, a))
	assert.Equal(t, "2024-03-01", AddDays("2024-02-29", 1))
}
