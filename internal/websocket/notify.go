package websocket

import (
	"github.com/dukerupert/opsconsole/internal/datewindow"
	"github.com/dukerupert/opsconsole/internal/model"
)

// DayOffChanged announces a write to a day off period. Every change may alter
// the resolved notice, so a notice_changed message follows.
func (h *Hub) DayOffChanged(action string, p model.DayOffPeriod) {
	h.Broadcast(NewMessage(EntityDayOff, action, p.ID, periodExtra(p)))
	h.Broadcast(NewMessage(EntityNotice, ActionChanged, "", nil))
}

// PeriodAutoDisabled is called by the expiry sweep.
func (h *Hub) PeriodAutoDisabled(p model.DayOffPeriod) {
	h.DayOffChanged(ActionAutoDisabled, p)
}

func periodExtra(p model.DayOffPeriod) map[string]any {
	if p.StartDate.IsZero() {
		return nil
	}
	return map[string]any{
		"start_date":  datewindow.Format(p.StartDate),
		"end_date":    datewindow.Format(p.EndDate),
		"show_banner": p.ShowBanner,
	}
}
