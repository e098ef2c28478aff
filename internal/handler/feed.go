package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/dukerupert/opsconsole/internal/datewindow"
	"github.com/dukerupert/opsconsole/internal/model"
	"github.com/dukerupert/opsconsole/internal/store"
)

// FeedHandler exports closures as an iCalendar subscription.
type FeedHandler struct {
	store       *store.DayOffStore
	today       Clock
	horizonDays int
	name        string
	logger      *slog.Logger
}

func NewFeedHandler(s *store.DayOffStore, today Clock, horizonDays int, name string, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{store: s, today: today, horizonDays: horizonDays, name: name, logger: logger}
}

// ICS writes one all-day VEVENT per occurrence between today and the horizon.
func (h *FeedHandler) ICS(w http.ResponseWriter, r *http.Request) {
	periods, err := h.store.List()
	if err != nil {
		h.logger.Error("failed to list day off periods", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build feed")
		return
	}

	today := h.today()
	horizon := datewindow.NewWindow(today, datewindow.AddDays(today, h.horizonDays))
	cal := h.calendar(periods, horizon, time.Now().UTC())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="closures.ics"`)
	fmt.Fprint(w, cal.Serialize())
}

func (h *FeedHandler) calendar(periods []model.DayOffPeriod, horizon datewindow.Window, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//" + h.name + "//closures//EN")
	cal.SetName(h.name + " closures")

	for _, p := range periods {
		occs, err := p.Occurrences(horizon.Start, horizon.End)
		if err != nil {
			h.logger.Warn("data integrity: skipping day off period", "period_id", p.ID, "error", err)
			continue
		}
		for _, occ := range occs {
			event := cal.AddEvent(fmt.Sprintf("%s-%s@%s", p.ID, occ.Start.Format("20060102"), h.name))
			event.SetDtStampTime(stamp)
			event.SetSummary(p.Title)
			if desc := describe(p); desc != "" {
				event.SetDescription(desc)
			}
			event.SetAllDayStartAt(occ.Start)
			// DTEND is exclusive for all-day events.
			event.SetAllDayEndAt(datewindow.DayAfter(occ.End))
		}
	}
	return cal
}

func describe(p model.DayOffPeriod) string {
	var parts []string
	if p.Description != "" {
		parts = append(parts, p.Description)
	}
	if p.IsRecurring() {
		parts = append(parts, p.Recurrence.Describe())
	}
	return strings.Join(parts, "\n")
}
