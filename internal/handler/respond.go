package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/opsconsole/internal/datewindow"
	"github.com/dukerupert/opsconsole/internal/model"
	"github.com/dukerupert/opsconsole/internal/store"
)

// Clock returns the current business-local calendar date.
type Clock func() time.Time

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps validation and not-found errors to 400 and 404. Anything
// else is logged and reported as a generic 500 using msg.
func writeStoreError(w http.ResponseWriter, logger *slog.Logger, err error, msg string) {
	var verrs model.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": verrs})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "day off period not found")
	default:
		logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

// dateParam reads a YYYY-MM-DD query parameter, returning fallback when it is absent.
func dateParam(r *http.Request, key string, fallback time.Time) (time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	d, err := datewindow.ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD", key)
	}
	return d, nil
}
