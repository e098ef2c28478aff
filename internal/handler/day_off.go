package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/opsconsole/internal/datewindow"
	"github.com/dukerupert/opsconsole/internal/model"
	"github.com/dukerupert/opsconsole/internal/notice"
	"github.com/dukerupert/opsconsole/internal/recurrence"
	"github.com/dukerupert/opsconsole/internal/store"
	"github.com/dukerupert/opsconsole/internal/websocket"
)

// DayOffNotifier is told about every successful write.
type DayOffNotifier interface {
	DayOffChanged(action string, p model.DayOffPeriod)
}

type DayOffHandler struct {
	store    *store.DayOffStore
	notifier DayOffNotifier
	today    Clock
	logger   *slog.Logger
}

func NewDayOffHandler(s *store.DayOffStore, notifier DayOffNotifier, today Clock, logger *slog.Logger) *DayOffHandler {
	return &DayOffHandler{store: s, notifier: notifier, today: today, logger: logger}
}

func (h *DayOffHandler) notify(action string, p model.DayOffPeriod) {
	if h.notifier != nil {
		h.notifier.DayOffChanged(action, p)
	}
}

type dayOffRequest struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	ShowBanner     *bool   `json:"show_banner"`
	BannerMessage  *string `json:"banner_message"`
	IsRecurring    bool    `json:"is_recurring"`
	RecurrenceType *string `json:"recurrence_type"`
}

// period converts the request, reporting unparseable fields as validation
// errors. show_banner defaults to true.
func (req dayOffRequest) period() (model.DayOffPeriod, error) {
	var errs model.ValidationErrors
	p := model.DayOffPeriod{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		ShowBanner:  req.ShowBanner == nil || *req.ShowBanner,
	}
	if req.BannerMessage != nil {
		if msg := strings.TrimSpace(*req.BannerMessage); msg != "" {
			p.BannerMessage = &msg
		}
	}

	var err error
	if req.StartDate != "" {
		if p.StartDate, err = datewindow.ParseDate(req.StartDate); err != nil {
			errs = append(errs, model.FieldError{Field: "start_date", Message: "start_date must be YYYY-MM-DD"})
		}
	}
	if req.EndDate != "" {
		if p.EndDate, err = datewindow.ParseDate(req.EndDate); err != nil {
			errs = append(errs, model.FieldError{Field: "end_date", Message: "end_date must be YYYY-MM-DD"})
		}
	}
	if p.Recurrence, err = recurrence.FromFields(req.IsRecurring, req.RecurrenceType); err != nil {
		errs = append(errs, model.FieldError{Field: "recurrence_type", Message: err.Error()})
	}

	if len(errs) > 0 {
		return p, errs
	}
	return p, nil
}

func (h *DayOffHandler) decode(w http.ResponseWriter, r *http.Request) (model.DayOffPeriod, bool) {
	var req dayOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return model.DayOffPeriod{}, false
	}
	p, err := req.period()
	if err != nil {
		writeStoreError(w, h.logger, err, "invalid day off period")
		return model.DayOffPeriod{}, false
	}
	return p, true
}

func (h *DayOffHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decode(w, r)
	if !ok {
		return
	}

	created, err := h.store.Create(p)
	if err != nil {
		writeStoreError(w, h.logger, err, "failed to create day off period")
		return
	}

	h.logger.Info("day off period created", "period_id", created.ID, "recurrence", created.Recurrence.String())
	h.notify(websocket.ActionCreated, *created)
	writeJSON(w, http.StatusCreated, created)
}

// List returns every period, or those covering ?active_on=, or those
// overlapping ?from=&to=.
func (h *DayOffHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var periods []model.DayOffPeriod
	var err error
	switch {
	case q.Get("active_on") != "":
		date, perr := dateParam(r, "active_on", time.Time{})
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		periods, err = h.store.ListActiveOn(date)
	case q.Get("from") != "" || q.Get("to") != "":
		from, ferr := dateParam(r, "from", time.Time{})
		to, terr := dateParam(r, "to", time.Time{})
		if ferr != nil || terr != nil || from.IsZero() || to.IsZero() {
			writeError(w, http.StatusBadRequest, "from and to must both be YYYY-MM-DD")
			return
		}
		window := datewindow.NewWindow(from, to)
		if !window.Valid() {
			writeError(w, http.StatusBadRequest, "to must not be before from")
			return
		}
		periods, err = h.store.ListOverlapping(window)
	default:
		periods, err = h.store.List()
	}
	if err != nil {
		writeStoreError(w, h.logger, err, "failed to list day off periods")
		return
	}
	if periods == nil {
		periods = []model.DayOffPeriod{}
	}
	writeJSON(w, http.StatusOK, periods)
}

func (h *DayOffHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetByID(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, h.logger, err, "failed to get day off period")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "day off period not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *DayOffHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decode(w, r)
	if !ok {
		return
	}

	updated, err := h.store.Update(r.PathValue("id"), p)
	if err != nil {
		writeStoreError(w, h.logger, err, "failed to update day off period")
		return
	}

	h.notify(websocket.ActionUpdated, *updated)
	writeJSON(w, http.StatusOK, updated)
}

func (h *DayOffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.store.GetByID(id)
	if err != nil {
		writeStoreError(w, h.logger, err, "failed to delete day off period")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "day off period not found")
		return
	}

	if err := h.store.Delete(id); err != nil {
		writeStoreError(w, h.logger, err, "failed to delete day off period")
		return
	}

	h.logger.Info("day off period deleted", "period_id", id)
	h.notify(websocket.ActionDeleted, *existing)
	w.WriteHeader(http.StatusNoContent)
}

// AutoDisable reports whether the period's banner is due to be switched off
// on ?date= (default today).
func (h *DayOffHandler) AutoDisable(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r, "date", h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.store.GetByID(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, h.logger, err, "failed to get day off period")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "day off period not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"period_id":    p.ID,
		"date":         datewindow.Format(date),
		"auto_disable": notice.ShouldAutoDisable(*p, date),
	})
}
