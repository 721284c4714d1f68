package tradingday

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"tradovate-journal/internal/models"
)

func mustClassifier(t *testing.T, hour int, tz string) *Classifier {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("failed to load location %s: %v", tz, err)
	}
	c, err := NewClassifier(hour, loc)
	if err != nil {
		t.Fatalf("failed to create classifier: %v", err)
	}
	return c
}

func TestNewClassifierValidation(t *testing.T) {
	if _, err := NewClassifier(-1, time.UTC); err == nil {
		t.Error("expected error for negative close hour")
	}
	if _, err := NewClassifier(24, time.UTC); err == nil {
		t.Error("expected error for close hour 24")
	}
	if _, err := NewClassifier(15, nil); err == nil {
		t.Error("expected error for nil location")
	}
	if _, err := NewClassifier(0, time.UTC); err != nil {
		t.Errorf("close hour 0 should be valid: %v", err)
	}
	if _, err := NewClassifier(23, time.UTC); err != nil {
		t.Errorf("close hour 23 should be valid: %v", err)
	}
}

func TestDayOfSessionCloseBoundary(t *testing.T) {
	c := mustClassifier(t, 15, "America/Chicago")
	loc := c.Location()

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"before close", time.Date(2026, 1, 15, 14, 59, 0, 0, loc), "2026-01-15"},
		{"exactly at close", time.Date(2026, 1, 15, 15, 0, 0, 0, loc), "2026-01-15"},
		{"one second after close", time.Date(2026, 1, 15, 15, 0, 1, 0, loc), "2026-01-16"},
		{"evening rolls forward", time.Date(2026, 1, 15, 20, 30, 0, 0, loc), "2026-01-16"},
		{"early morning stays", time.Date(2026, 1, 15, 3, 0, 0, 0, loc), "2026-01-15"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := c.DayOf(tc.at)
			if got.String() != tc.want {
				t.Errorf("DayOf(%v) = %s, want %s", tc.at, got, tc.want)
			}
		})
	}
}

func TestDayOfUsesReferenceTimezone(t *testing.T) {
	c := mustClassifier(t, 15, "America/Chicago")

	// 21:30 UTC is 15:30 in Chicago during winter, past the close.
	at := time.Date(2026, 1, 15, 21, 30, 0, 0, time.UTC)
	if got := c.DayOf(at); got.String() != "2026-01-16" {
		t.Errorf("DayOf(%v) = %s, want 2026-01-16", at, got)
	}

	// 20:59 UTC is 14:59 in Chicago, still inside the session.
	at = time.Date(2026, 1, 15, 20, 59, 0, 0, time.UTC)
	if got := c.DayOf(at); got.String() != "2026-01-15" {
		t.Errorf("DayOf(%v) = %s, want 2026-01-15", at, got)
	}
}

func TestRangeOf(t *testing.T) {
	c := mustClassifier(t, 15, "America/Chicago")
	loc := c.Location()

	day := Day{Year: 2026, Month: time.January, Dom: 16}
	start, end := c.RangeOf(day)

	wantStart := time.Date(2026, 1, 15, 15, 0, 0, 0, loc).Add(time.Nanosecond)
	wantEnd := time.Date(2026, 1, 16, 15, 0, 0, 0, loc)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}
	if !end.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", end, wantEnd)
	}

	// Both bounds map back to the same label.
	if got := c.DayOf(start); got != day {
		t.Errorf("DayOf(start) = %s, want %s", got, day)
	}
	if got := c.DayOf(end); got != day {
		t.Errorf("DayOf(end) = %s, want %s", got, day)
	}
	// One nanosecond outside each bound does not.
	if got := c.DayOf(start.Add(-time.Nanosecond)); got == day {
		t.Error("instant before range start should map to prior day")
	}
	if got := c.DayOf(end.Add(time.Nanosecond)); got == day {
		t.Error("instant after range end should map to next day")
	}
}

func TestMonthRange(t *testing.T) {
	c := mustClassifier(t, 15, "America/Chicago")
	loc := c.Location()

	start, end := c.MonthRange(2026, time.February)
	wantStart := time.Date(2026, 1, 31, 15, 0, 0, 0, loc).Add(time.Nanosecond)
	wantEnd := time.Date(2026, 2, 28, 15, 0, 0, 0, loc)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}
	if !end.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", end, wantEnd)
	}

	// Leap year February.
	_, end = c.MonthRange(2028, time.February)
	wantEnd = time.Date(2028, 2, 29, 15, 0, 0, 0, loc)
	if !end.Equal(wantEnd) {
		t.Errorf("leap year end = %v, want %v", end, wantEnd)
	}
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2026-01-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2026-01-15" {
		t.Errorf("round trip = %s", d)
	}
	if _, err := ParseDay("15/01/2026"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestTradeType(t *testing.T) {
	c := mustClassifier(t, 15, "America/Chicago")
	loc := c.Location()

	entry := time.Date(2026, 1, 15, 9, 30, 0, 0, loc)
	sameDayExit := time.Date(2026, 1, 15, 14, 0, 0, 0, loc)
	if got := c.TradeType(entry, sameDayExit); got != models.TradeTypeDay {
		t.Errorf("same-session trade = %s, want %s", got, models.TradeTypeDay)
	}

	// Exit after the close is the next trading day even on the same date.
	overnightExit := time.Date(2026, 1, 15, 16, 0, 0, 0, loc)
	if got := c.TradeType(entry, overnightExit); got != models.TradeTypeSwing {
		t.Errorf("overnight trade = %s, want %s", got, models.TradeTypeSwing)
	}
}

func TestDayOfRangeOfInverse(t *testing.T) {
	c := mustClassifier(t, 15, "America/Chicago")

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Unix()
	properties.Property("RangeOf(DayOf(t)) contains t", prop.ForAll(
		func(offsetSec int64) bool {
			at := time.Unix(base+offsetSec, 0)
			day := c.DayOf(at)
			start, end := c.RangeOf(day)
			return !at.Before(start) && !at.After(end)
		},
		gen.Int64Range(0, 2*365*24*3600),
	))

	properties.Property("adjacent ranges partition time", prop.ForAll(
		func(offsetSec int64) bool {
			at := time.Unix(base+offsetSec, 0)
			day := c.DayOf(at)
			_, end := c.RangeOf(day)
			nextStart, _ := c.RangeOf(day.AddDays(1))
			return nextStart.Sub(end) == time.Nanosecond
		},
		gen.Int64Range(0, 2*365*24*3600),
	))

	properties.TestingRun(t)
}
