package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/opsconsole/internal/calendar"
	"github.com/dukerupert/opsconsole/internal/datewindow"
	"github.com/dukerupert/opsconsole/internal/model"
	"github.com/dukerupert/opsconsole/internal/store"
)

// GridRecorder counts grid builds per view.
type GridRecorder interface {
	GridBuilt(view string)
}

// hiddenStatuses never appear on the staff calendar.
var hiddenStatuses = []string{"cancelled"}

type CalendarHandler struct {
	bookings *store.BookingStore
	recorder GridRecorder
	today    Clock
	logger   *slog.Logger
}

func NewCalendarHandler(bs *store.BookingStore, recorder GridRecorder, today Clock, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{bookings: bs, recorder: recorder, today: today, logger: logger}
}

// Grid renders ?view=month|week|day around ?date= (defaults: month, today).
func (h *CalendarHandler) Grid(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")
	if view == "" {
		view = string(calendar.Month)
	}
	granularity, err := calendar.ParseGranularity(view)
	if err != nil {
		writeError(w, http.StatusBadRequest, "view must be month, week or day")
		return
	}
	ref, err := dateParam(r, "date", h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rng, err := calendar.RangeFor(ref, granularity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bookings, err := h.bookings.List(store.BookingFilter{From: rng.Start, To: rng.End, ExcludeStatuses: hiddenStatuses})
	if err != nil {
		h.logger.Error("failed to list bookings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build calendar")
		return
	}

	grid, err := calendar.Build(ref, granularity, bookings)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.recorder != nil {
		h.recorder.GridBuilt(string(granularity))
	}
	if grid.OutOfRange == nil {
		grid.OutOfRange = []model.Booking{}
	}
	if grid.Untimed == nil {
		grid.Untimed = []calendar.Cell{}
	}
	writeJSON(w, http.StatusOK, grid)
}

// Slot lists every booking in one hour of one day, for the "view all" action
// behind an overflow marker.
func (h *CalendarHandler) Slot(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r, "date", h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hour, err := strconv.Atoi(r.URL.Query().Get("hour"))
	if err != nil || hour < 0 || hour > 23 {
		writeError(w, http.StatusBadRequest, "hour must be between 0 and 23")
		return
	}

	bookings, err := h.bookings.List(store.BookingFilter{From: date, To: date, ExcludeStatuses: hiddenStatuses})
	if err != nil {
		h.logger.Error("failed to list bookings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load slot")
		return
	}

	slot := calendar.GroupBySlot(bookings)[calendar.SlotKey{Date: date, Hour: hour}]
	if slot == nil {
		slot = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":     datewindow.Format(date),
		"hour":     hour,
		"bookings": slot,
	})
}
