package datewindow

import (
	"encoding/json"
	"fmt"
	"time"
)

// Layout is the wire and storage format for calendar dates.
const Layout = "2006-01-02"

// Date returns the calendar date y-m-d as midnight UTC. Out-of-range
// values normalize the way time.Date does.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Normalize drops the clock and location of t, keeping the calendar date
// as seen in t's own location.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Format renders a date as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// DayBefore returns the calendar day preceding d.
func DayBefore(d time.Time) time.Time {
	d = Normalize(d)
	return Date(d.Year(), d.Month(), d.Day()-1)
}

// DayAfter returns the calendar day following d.
func DayAfter(d time.Time) time.Time {
	d = Normalize(d)
	return Date(d.Year(), d.Month(), d.Day()+1)
}

// AddDays moves d by n calendar days.
func AddDays(d time.Time, n int) time.Time {
	d = Normalize(d)
	return Date(d.Year(), d.Month(), d.Day()+n)
}

// DaysBetween returns the number of calendar days from a to b (negative if b is before a).
func DaysBetween(a, b time.Time) int {
	return int(Normalize(b).Sub(Normalize(a)).Hours() / 24)
}

// DaysInMonth returns the length of month in year.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonthsClamped moves d forward by n months. When the day does not exist
// in the target month it lands on that month's last day instead of rolling over.
func AddMonthsClamped(d time.Time, n int) time.Time {
	d = Normalize(d)
	first := Date(d.Year(), d.Month()+time.Month(n), 1)
	day := d.Day()
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return Date(first.Year(), first.Month(), day)
}

// AddYearsClamped moves d by n years, mapping Feb 29 to Feb 28 in non-leap years.
func AddYearsClamped(d time.Time, n int) time.Time {
	return AddMonthsClamped(d, 12*n)
}

// Window is an inclusive range of calendar dates.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow builds a window from two dates, normalizing both.
func NewWindow(start, end time.Time) Window {
	return Window{Start: Normalize(start), End: Normalize(end)}
}

// Valid reports whether the window does not end before it starts.
func (w Window) Valid() bool {
	return !w.End.Before(w.Start)
}

// Days is the inclusive day count of the window.
func (w Window) Days() int {
	return DaysBetween(w.Start, w.End) + 1
}

// Contains reports whether date falls inside the window, bounds included.
func (w Window) Contains(date time.Time) bool {
	date = Normalize(date)
	return !date.Before(w.Start) && !date.After(w.End)
}

// Overlaps reports whether two windows share at least one day.
func (w Window) Overlaps(o Window) bool {
	return !w.Start.After(o.End) && !o.Start.After(w.End)
}

// MarshalJSON writes both bounds as YYYY-MM-DD.
func (w Window) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}{Format(w.Start), Format(w.End)})
}

// String renders the window as "start..end".
func (w Window) String() string {
	return Format(w.Start) + ".." + Format(w.End)
}

// Contains reports whether date falls inside w.
func Contains(w Window, date time.Time) bool { return w.Contains(date) }

// Overlaps reports whether a and b share at least one day.
func Overlaps(a, b Window) bool { return a.Overlaps(b) }

// CompareEnd orders two windows by end date: -1 if a ends first, 1 if b does, 0 on the same day.
func CompareEnd(a, b Window) int {
	return a.End.Compare(b.End)
}
