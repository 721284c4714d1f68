// Package tradingday maps timestamps to trading-day labels using a
// session-close cutoff instead of midnight. A fill at or before the
// session close belongs to that calendar date's trading day; anything
// after it rolls into the next day's bucket.
package tradingday

import (
	"fmt"
	"time"

	"tradovate-journal/internal/models"
)

// Day is a trading-day label: a calendar date in the classifier's
// reference timezone.
type Day struct {
	Year  int
	Month time.Month
	Dom   int
}

// String formats the label as an ISO date.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Dom)
}

// AddDays returns the label n calendar days later (or earlier for n < 0).
func (d Day) AddDays(n int) Day {
	t := time.Date(d.Year, d.Month, d.Dom, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return Day{Year: t.Year(), Month: t.Month(), Dom: t.Day()}
}

// Before reports whether d is an earlier label than other.
func (d Day) Before(other Day) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Dom < other.Dom
}

// ParseDay parses an ISO date label.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid trading day %q: %w", s, err)
	}
	return Day{Year: t.Year(), Month: t.Month(), Dom: t.Day()}, nil
}

// Classifier maps timestamps to trading days for a fixed session-close
// hour and reference timezone. The mapping is exactly invertible: for any
// t, RangeOf(DayOf(t)) contains t.
type Classifier struct {
	closeHour int
	loc       *time.Location
}

// NewClassifier creates a classifier. closeHour is the session-close hour
// in 24h local time (e.g. 15 for 3:00 PM).
func NewClassifier(closeHour int, loc *time.Location) (*Classifier, error) {
	if closeHour < 0 || closeHour > 23 {
		return nil, fmt.Errorf("session close hour must be between 0 and 23, got %d", closeHour)
	}
	if loc == nil {
		return nil, fmt.Errorf("reference timezone is required")
	}
	return &Classifier{closeHour: closeHour, loc: loc}, nil
}

// CloseHour returns the configured session-close hour.
func (c *Classifier) CloseHour() int {
	return c.closeHour
}

// Location returns the reference timezone.
func (c *Classifier) Location() *time.Location {
	return c.loc
}

// DayOf maps a timestamp to its trading day. A timestamp exactly at the
// session close belongs to that date; one instant later belongs to the
// next date.
func (c *Classifier) DayOf(t time.Time) Day {
	lt := t.In(c.loc)
	day := Day{Year: lt.Year(), Month: lt.Month(), Dom: lt.Day()}
	cutoff := time.Date(lt.Year(), lt.Month(), lt.Day(), c.closeHour, 0, 0, 0, c.loc)
	if lt.After(cutoff) {
		day = day.AddDays(1)
	}
	return day
}

// RangeOf returns the timestamp interval whose members map to day:
// from the prior date's session close (exclusive) through day's session
// close (inclusive). Start carries the smallest representable increment
// past the prior close so that both bounds can be used with inclusive
// comparisons.
func (c *Classifier) RangeOf(day Day) (start, end time.Time) {
	prev := day.AddDays(-1)
	start = time.Date(prev.Year, prev.Month, prev.Dom, c.closeHour, 0, 0, 0, c.loc).Add(time.Nanosecond)
	end = time.Date(day.Year, day.Month, day.Dom, c.closeHour, 0, 0, 0, c.loc)
	return start, end
}

// MonthRange returns the timestamp interval covering all trading days of
// the given calendar month, from the first label's range start through the
// last label's range end.
func (c *Classifier) MonthRange(year int, month time.Month) (start, end time.Time) {
	first := Day{Year: year, Month: month, Dom: 1}
	last := first.AddDays(daysInMonth(year, month) - 1)
	start, _ = c.RangeOf(first)
	_, end = c.RangeOf(last)
	return start, end
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsDayTrade reports whether entry and exit fall on the same trading day.
func (c *Classifier) IsDayTrade(entry, exit time.Time) bool {
	return c.DayOf(entry) == c.DayOf(exit)
}

// TradeType classifies a trade by its entry and exit timestamps.
func (c *Classifier) TradeType(entry, exit time.Time) models.TradeType {
	if c.IsDayTrade(entry, exit) {
		return models.TradeTypeDay
	}
	return models.TradeTypeSwing
}
