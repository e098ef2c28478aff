package calendar

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/opsconsole/internal/datewindow"
	"github.com/dukerupert/opsconsole/internal/model"
)

// SlotKey identifies a one-hour bucket on a calendar day.
type SlotKey struct {
	Date time.Time
	Hour int
}

// ParseClock reads "H:MM", "HH:MM" or "HH:MM:SS" and returns the hour and minute.
func ParseClock(s string) (hour, minute int, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, false
	}
	if len(parts[0]) < 1 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, 0, false
	}
	for _, p := range parts {
		if !digits(p) {
			return 0, 0, false
		}
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m > 59 {
		return 0, 0, false
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || len(parts[2]) != 2 || sec > 59 {
			return 0, 0, false
		}
	}
	return h, m, true
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// GroupBySlot buckets bookings by (date, hour). Minutes only affect the order
// inside a bucket. Bookings whose time does not parse are left out.
func GroupBySlot(bookings []model.Booking) map[SlotKey][]model.Booking {
	slots := make(map[SlotKey][]model.Booking)
	for _, b := range bookings {
		h, _, ok := ParseClock(b.Time)
		if !ok {
			continue
		}
		key := SlotKey{Date: datewindow.Normalize(b.Date), Hour: h}
		slots[key] = append(slots[key], b)
	}
	for key := range slots {
		sortByTime(slots[key])
	}
	return slots
}

// sortByTime orders bookings by clock time, keeping arrival order for equal
// times. Unparseable times go last.
func sortByTime(bookings []model.Booking) {
	slices.SortStableFunc(bookings, func(a, b model.Booking) int {
		return cmp.Compare(minuteOfDay(a.Time), minuteOfDay(b.Time))
	})
}

func minuteOfDay(s string) int {
	h, m, ok := ParseClock(s)
	if !ok {
		return 24 * 60
	}
	return h*60 + m
}
