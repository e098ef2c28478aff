package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/opsconsole/internal/notice"
	"github.com/dukerupert/opsconsole/internal/store"
)

type NoticeHandler struct {
	store    *store.DayOffStore
	resolver *notice.Resolver
	today    Clock
	logger   *slog.Logger
}

func NewNoticeHandler(s *store.DayOffStore, resolver *notice.Resolver, today Clock, logger *slog.Logger) *NoticeHandler {
	return &NoticeHandler{store: s, resolver: resolver, today: today, logger: logger}
}

// Get returns the notice to display on ?date= (default today), or 204 when
// there is none.
func (h *NoticeHandler) Get(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r, "date", h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	periods, err := h.store.ListBannerEnabled()
	if err != nil {
		h.logger.Error("failed to load day off periods", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve notice")
		return
	}

	view := h.resolver.Resolve(date, periods)
	if view == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
