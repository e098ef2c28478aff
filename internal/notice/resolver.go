package notice

import (
	"cmp"
	"encoding/json"
	"log/slog"
	"slices"
	"time"

	"github.com/dukerupert/opsconsole/internal/datewindow"
	"github.com/dukerupert/opsconsole/internal/model"
)

type State string

const (
	StateUpcoming State = "upcoming"
	StateActive   State = "active"
)

// rank orders states for tie-breaking: active before upcoming.
func (s State) rank() int {
	if s == StateActive {
		return 0
	}
	return 1
}

// View is the notice a customer-facing page should show.
type View struct {
	PeriodID      string    `json:"period_id"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	State         State     `json:"state"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	DateRangeText string    `json:"date_range_text"`
}

func (v View) MarshalJSON() ([]byte, error) {
	type alias View
	return json.Marshal(struct {
		alias
		Start string `json:"start"`
		End   string `json:"end"`
	}{alias(v), datewindow.Format(v.Start), datewindow.Format(v.End)})
}

// Recorder receives resolution outcomes. A nil Recorder is allowed.
type Recorder interface {
	NoticeResolved(state string)
	PeriodSkipped()
}

// Resolver picks at most one notice for a given day.
type Resolver struct {
	logger   *slog.Logger
	recorder Recorder
}

func NewResolver(logger *slog.Logger, recorder Recorder) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger, recorder: recorder}
}

type candidate struct {
	period model.DayOffPeriod
	occ    datewindow.Window
	state  State
}

// Resolve returns the single notice to display on now, or nil. A notice is
// shown from the day before an occurrence starts through its last day.
// Active notices beat upcoming ones; within a state the occurrence ending
// soonest wins, then the lower period id.
func (r *Resolver) Resolve(now time.Time, periods []model.DayOffPeriod) *View {
	now = datewindow.Normalize(now)
	horizonStart, horizonEnd := datewindow.DayBefore(now), datewindow.DayAfter(now)

	var candidates []candidate
	for _, p := range periods {
		if !p.ShowBanner {
			continue
		}
		if err := p.Validate(); err != nil {
			r.skip(p, err)
			continue
		}
		occs, err := p.Occurrences(horizonStart, horizonEnd)
		if err != nil {
			r.skip(p, err)
			continue
		}
		for _, occ := range occs {
			visible := datewindow.Window{Start: datewindow.DayBefore(occ.Start), End: occ.End}
			if !visible.Contains(now) {
				continue
			}
			state := StateActive
			if now.Before(occ.Start) {
				state = StateUpcoming
			}
			candidates = append(candidates, candidate{period: p, occ: occ, state: state})
		}
	}

	if len(candidates) == 0 {
		r.resolved("none")
		return nil
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return cmp.Or(
			cmp.Compare(a.state.rank(), b.state.rank()),
			datewindow.CompareEnd(a.occ, b.occ),
			cmp.Compare(a.period.ID, b.period.ID),
			a.occ.Start.Compare(b.occ.Start),
		)
	})

	best := candidates[0]
	r.resolved(string(best.state))
	return &View{
		PeriodID:      best.period.ID,
		Title:         best.period.Title,
		Message:       best.period.Message(),
		State:         best.state,
		Start:         best.occ.Start,
		End:           best.occ.End,
		DateRangeText: FormatRange(best.occ),
	}
}

// ShouldAutoDisable reports whether a one-off period has fully passed and its
// banner can be switched off. Recurring periods are never disabled.
func ShouldAutoDisable(p model.DayOffPeriod, now time.Time) bool {
	if p.IsRecurring() || !p.Recurrence.Valid() || p.EndDate.IsZero() {
		return false
	}
	return datewindow.Normalize(p.EndDate).Before(datewindow.Normalize(now))
}

// FormatRange renders an occurrence for banner copy, e.g. "10 Jun - 12 Jun 2024".
func FormatRange(w datewindow.Window) string {
	switch {
	case w.Start.Equal(w.End):
		return w.Start.Format("2 Jan 2006")
	case w.Start.Year() == w.End.Year():
		return w.Start.Format("2 Jan") + " - " + w.End.Format("2 Jan 2006")
	default:
		return w.Start.Format("2 Jan 2006") + " - " + w.End.Format("2 Jan 2006")
	}
}

func (r *Resolver) skip(p model.DayOffPeriod, err error) {
	r.logger.Warn("data integrity: skipping day off period", "period_id", p.ID, "error", err)
	if r.recorder != nil {
		r.recorder.PeriodSkipped()
	}
}

func (r *Resolver) resolved(state string) {
	if r.recorder != nil {
		r.recorder.NoticeResolved(state)
	}
}
