package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/opsconsole/internal/datewindow"
)

// Occurrence is one concrete, dated instance of a day-off period.
type Occurrence = datewindow.Window

var (
	ErrInvalidWindow  = errors.New("template window ends before it starts")
	ErrInvalidHorizon = errors.New("horizon ends before it starts")
)

// Safety limit to prevent runaway expansion over very wide horizons.
const maxOccurrences = 10000

// Expand generates the occurrences of a period whose first instance is
// [start, end] that overlap the inclusive horizon [horizonStart, horizonEnd].
// Every occurrence keeps the template's length. Occurrences are returned in
// chronological order; a non-repeating period yields at most its own window.
func Expand(kind Kind, start, end, horizonStart, horizonEnd time.Time) ([]Occurrence, error) {
	template := datewindow.NewWindow(start, end)
	horizon := datewindow.NewWindow(horizonStart, horizonEnd)

	if !template.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWindow, template)
	}
	if !horizon.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidHorizon, horizon)
	}

	switch {
	case kind == None:
		if template.Overlaps(horizon) {
			return []Occurrence{template}, nil
		}
		return nil, nil
	case !kind.IsRecurring():
		return nil, fmt.Errorf("%w: %s", ErrInvalidKind, kind)
	}

	span := template.Days() - 1
	at := func(n int) Occurrence {
		s := step(kind, template.Start, n)
		return Occurrence{Start: s, End: datewindow.AddDays(s, span)}
	}

	// Jump close to the horizon, then walk backward while the previous
	// occurrence still reaches into it.
	n := estimateIndex(kind, template.Start, datewindow.AddDays(horizon.Start, -span))
	for n > 0 && !at(n-1).End.Before(horizon.Start) {
		n--
	}
	for at(n).End.Before(horizon.Start) {
		n++
	}

	var results []Occurrence
	for count := 0; count < maxOccurrences; count++ {
		occ := at(n)
		if occ.Start.After(horizon.End) {
			break
		}
		if len(results) == 0 || !results[len(results)-1].Start.Equal(occ.Start) {
			results = append(results, occ)
		}
		n++
	}
	return results, nil
}

// step returns the start of occurrence n, computed from the anchor rather
// than from occurrence n-1 so month-end clamping does not drift.
func step(kind Kind, anchor time.Time, n int) time.Time {
	switch kind {
	case Weekly:
		return datewindow.AddDays(anchor, 7*n)
	case Monthly:
		return datewindow.AddMonthsClamped(anchor, n)
	case Yearly:
		return datewindow.AddYearsClamped(anchor, n)
	}
	return anchor
}

// estimateIndex returns an occurrence index whose start is on or before
// target, never negative.
func estimateIndex(kind Kind, anchor, target time.Time) int {
	if !target.After(anchor) {
		return 0
	}
	var n int
	switch kind {
	case Weekly:
		n = datewindow.DaysBetween(anchor, target) / 7
	case Monthly:
		n = (target.Year()-anchor.Year())*12 + int(target.Month()-anchor.Month()) - 1
	case Yearly:
		n = target.Year() - anchor.Year() - 1
	}
	if n < 0 {
		return 0
	}
	return n
}
