package calendar

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/opsconsole/internal/datewindow"
	"github.com/dukerupert/opsconsole/internal/model"
)

type Granularity string

const (
	Month Granularity = "month"
	Week  Granularity = "week"
	Day   Granularity = "day"
)

// Display limits per cell; the rest is reported as an overflow count.
const (
	MonthCellLimit = 3
	HourCellLimit  = 1
)

// NoHour marks a cell that covers a whole day.
const NoHour = -1

// ParseGranularity accepts "month", "week" or "day".
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case Month, Week, Day:
		return g, nil
	}
	return "", fmt.Errorf("unknown calendar view %q", s)
}

// Cell is one calendar square: a day in month view, or a day and hour in
// week and day views. Bookings holds everything assigned to it in display order.
type Cell struct {
	Date      time.Time
	Hour      int
	Bookings  []model.Booking
	Limit     int
	Truncated bool
}

// Visible is the part of Bookings shown directly.
func (c Cell) Visible() []model.Booking {
	if len(c.Bookings) > c.Limit {
		return c.Bookings[:c.Limit]
	}
	return c.Bookings
}

// Overflow is how many bookings sit behind the "N more" marker.
func (c Cell) Overflow() int {
	if n := len(c.Bookings) - c.Limit; n > 0 {
		return n
	}
	return 0
}

func (c Cell) MarshalJSON() ([]byte, error) {
	var hour *int
	if c.Hour != NoHour {
		hour = &c.Hour
	}
	visible := c.Visible()
	if visible == nil {
		visible = []model.Booking{}
	}
	return json.Marshal(struct {
		Date      string          `json:"date"`
		Hour      *int            `json:"hour"`
		Bookings  []model.Booking `json:"bookings"`
		Overflow  int             `json:"overflow"`
		Truncated bool            `json:"truncated"`
		Total     int             `json:"total"`
	}{datewindow.Format(c.Date), hour, visible, c.Overflow(), c.Truncated, len(c.Bookings)})
}

// Grid is a rendered calendar view.
type Grid struct {
	Granularity Granularity       `json:"view"`
	Reference   time.Time         `json:"reference"`
	Range       datewindow.Window `json:"range"`
	// Cells are ordered by date, then hour.
	Cells []Cell `json:"cells"`
	// Untimed holds, per day, week and day view bookings whose time does not parse.
	Untimed []Cell `json:"untimed"`
	// OutOfRange holds bookings dated outside Range.
	OutOfRange []model.Booking `json:"out_of_range"`
}

func (g Grid) MarshalJSON() ([]byte, error) {
	type alias Grid
	return json.Marshal(struct {
		alias
		Reference string `json:"reference"`
	}{alias(g), datewindow.Format(g.Reference)})
}

// Accounted counts every input booking the grid represents: shown directly,
// behind an overflow marker, or listed as out of range.
func (g Grid) Accounted() int {
	n := len(g.OutOfRange)
	for _, cells := range [][]Cell{g.Cells, g.Untimed} {
		for _, c := range cells {
			n += len(c.Visible()) + c.Overflow()
		}
	}
	return n
}

// Cell returns the cell for date and hour (NoHour in month view).
func (g Grid) Cell(date time.Time, hour int) (Cell, bool) {
	date = datewindow.Normalize(date)
	for _, c := range g.Cells {
		if c.Date.Equal(date) && c.Hour == hour {
			return c, true
		}
	}
	return Cell{}, false
}

// RangeFor returns the dates a view containing reference spans. Month views
// are padded to whole Monday-to-Sunday weeks.
func RangeFor(reference time.Time, granularity Granularity) (datewindow.Window, error) {
	reference = datewindow.Normalize(reference)
	switch granularity {
	case Month:
		first := datewindow.Date(reference.Year(), reference.Month(), 1)
		last := datewindow.Date(reference.Year(), reference.Month()+1, 0)
		return datewindow.Window{Start: weekStart(first), End: datewindow.AddDays(weekStart(last), 6)}, nil
	case Week:
		start := weekStart(reference)
		return datewindow.Window{Start: start, End: datewindow.AddDays(start, 6)}, nil
	case Day:
		return datewindow.Window{Start: reference, End: reference}, nil
	}
	return datewindow.Window{}, fmt.Errorf("unknown calendar view %q", granularity)
}

// Build lays bookings out on the view containing reference. Weeks start on Monday.
func Build(reference time.Time, granularity Granularity, bookings []model.Booking) (Grid, error) {
	reference = datewindow.Normalize(reference)
	rng, err := RangeFor(reference, granularity)
	if err != nil {
		return Grid{}, err
	}

	g := Grid{Granularity: granularity, Reference: reference, Range: rng}

	var inRange []model.Booking
	for _, b := range bookings {
		if rng.Contains(b.Date) {
			inRange = append(inRange, b)
		} else {
			g.OutOfRange = append(g.OutOfRange, b)
		}
	}

	if granularity == Month {
		g.Cells = dayCells(rng, inRange)
		return g, nil
	}

	slots := GroupBySlot(inRange)
	untimed := make(map[time.Time][]model.Booking)
	for _, b := range inRange {
		if _, _, ok := ParseClock(b.Time); !ok {
			d := datewindow.Normalize(b.Date)
			untimed[d] = append(untimed[d], b)
		}
	}

	for d := rng.Start; !d.After(rng.End); d = datewindow.DayAfter(d) {
		for h := 0; h < 24; h++ {
			g.Cells = append(g.Cells, newCell(d, h, slots[SlotKey{Date: d, Hour: h}], HourCellLimit))
		}
		if list := untimed[d]; len(list) > 0 {
			g.Untimed = append(g.Untimed, newCell(d, NoHour, list, MonthCellLimit))
		}
	}
	return g, nil
}

func dayCells(rng datewindow.Window, bookings []model.Booking) []Cell {
	byDate := make(map[time.Time][]model.Booking)
	for _, b := range bookings {
		d := datewindow.Normalize(b.Date)
		byDate[d] = append(byDate[d], b)
	}

	cells := make([]Cell, 0, rng.Days())
	for d := rng.Start; !d.After(rng.End); d = datewindow.DayAfter(d) {
		list := byDate[d]
		sortByTime(list)
		cells = append(cells, newCell(d, NoHour, list, MonthCellLimit))
	}
	return cells
}

func newCell(date time.Time, hour int, bookings []model.Booking, limit int) Cell {
	return Cell{
		Date:      date,
		Hour:      hour,
		Bookings:  bookings,
		Limit:     limit,
		Truncated: len(bookings) > limit,
	}
}

// weekStart returns the Monday on or before d.
func weekStart(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return datewindow.AddDays(d, -offset)
}
