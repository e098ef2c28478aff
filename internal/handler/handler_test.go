package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/opsconsole/internal/database"
	"github.com/dukerupert/opsconsole/internal/datewindow"
	"github.com/dukerupert/opsconsole/internal/model"
	"github.com/dukerupert/opsconsole/internal/notice"
	"github.com/dukerupert/opsconsole/internal/store"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func fixedClock(y int, m time.Month, d int) Clock {
	return func() time.Time { return datewindow.Date(y, m, d) }
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err, "open test db")
	t.Cleanup(func() { db.Close() })
	return db
}

type recordedChange struct {
	action string
	id     string
}

type fakeNotifier struct{ changes []recordedChange }

func (f *fakeNotifier) DayOffChanged(action string, p model.DayOffPeriod) {
	f.changes = append(f.changes, recordedChange{action, p.ID})
}

type testEnv struct {
	db       *sql.DB
	store    *store.DayOffStore
	notifier *fakeNotifier
	mux      *http.ServeMux
}

func newTestEnv(t *testing.T, today Clock) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	s := store.NewDayOffStore(db)
	n := &fakeNotifier{}

	dayOffs := NewDayOffHandler(s, n, today, testLogger)
	notices := NewNoticeHandler(s, notice.NewResolver(testLogger, nil), today, testLogger)
	feed := NewFeedHandler(s, today, 60, "opsconsole", testLogger)
	cal := NewCalendarHandler(store.NewBookingStore(db, testLogger), nil, today, testLogger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/day-offs", dayOffs.Create)
	mux.HandleFunc("GET /api/day-offs", dayOffs.List)
	mux.HandleFunc("GET /api/day-offs/feed.ics", feed.ICS)
	mux.HandleFunc("GET /api/day-offs/{id}", dayOffs.Get)
	mux.HandleFunc("PUT /api/day-offs/{id}", dayOffs.Update)
	mux.HandleFunc("DELETE /api/day-offs/{id}", dayOffs.Delete)
	mux.HandleFunc("GET /api/day-offs/{id}/auto-disable", dayOffs.AutoDisable)
	mux.HandleFunc("GET /api/notice", notices.Get)
	mux.HandleFunc("GET /api/calendar", cal.Grid)
	mux.HandleFunc("GET /api/calendar/slot", cal.Slot)

	return &testEnv{db: db, store: s, notifier: n, mux: mux}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) create(t *testing.T, body string) map[string]any {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/day-offs", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	return got
}

func TestCreateDayOff(t *testing.T) {
	env := newTestEnv(t, fixedClock(2024, 6, 1))

	got := env.create(t, `{"title":"Summer break","start_date":"2024-06-10","end_date":"2024-06-12","banner_message":"Back Thursday"}`)

	assert.NotEmpty(t, got["id"])
	assert.Equal(t, "2024-06-10", got["start_date"])
	assert.Equal(t, "2024-06-12", got["end_date"])
	assert.Equal(t, true, got["show_banner"], "show_banner defaults to true")
	assert.Equal(t, false, got["is_recurring"])
	assert.Nil(t, got["recurrence_type"])
	assert.Equal(t, "Does not repeat", got["recurrence_text"])

	require.Len(t, env.notifier.changes, 1)
	assert.Equal(t, "created", env.notifier.changes[0].action)
}

func TestCreateDayOffValidation(t *testing.T) {
	env := newTestEnv(t, fixedClock(2024, 6, 1))

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing title", `{"start_date":"2024-06-10","end_date":"2024-06-12"}`, "title"},
		{"end before start", `{"title":"x","start_date":"2024-06-12","end_date":"2024-06-10"}`, "end_date"},
		{"bad date", `{"title":"x","start_date":"10/06/2024","end_date":"2024-06-12"}`, "start_date"},
		{"recurring without type", `{"title":"x","start_date":"2024-06-10","end_date":"2024-06-10","is_recurring":true}`, "recurrence_type"},
		{"type without flag", `{"title":"x","start_date":"2024-06-10","end_date":"2024-06-10","recurrence_type":"weekly"}`, "recurrence_type"},
		{"unknown type", `{"title":"x","start_date":"2024-06-10","end_date":"2024-06-10","is_recurring":true,"recurrence_type":"daily"}`, "recurrence_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/day-offs", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp struct {
				Error  string             `json:"error"`
				Fields []model.FieldError `json:"fields"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.True(t, model.ValidationErrors(resp.Fields).Has(tt.field), "fields = %+v, want %s", resp.Fields, tt.field)
		})
	}

	rec := env.do(t, http.MethodPost, "/api/day-offs", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "invalid JSON")

	periods, err := env.store.List()
	require.NoError(t, err)
	assert.Empty(t, periods, "rejected input was stored")
}

func TestGetUpdateDeleteDayOff(t *testing.T) {
	env := newTestEnv(t, fixedClock(2024, 6, 1))
	created := env.create(t, `{"title":"Stocktake","start_date":"2024-06-10","end_date":"2024-06-10"}`)
	id := created["id"].(string)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/day-offs/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/day-offs/missing", "").Code)

	rec := env.do(t, http.MethodPut, "/api/day-offs/"+id,
		`{"title":"Monthly stocktake","start_date":"2024-06-10","end_date":"2024-06-10","show_banner":false,"is_recurring":true,"recurrence_type":"monthly"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Monthly stocktake", updated["title"])
	assert.Equal(t, "monthly", updated["recurrence_type"])
	assert.Equal(t, "Repeats monthly", updated["recurrence_text"])
	assert.Equal(t, false, updated["show_banner"])

	rec = env.do(t, http.MethodPut, "/api/day-offs/missing", `{"title":"x","start_date":"2024-06-10","end_date":"2024-06-10"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/day-offs/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/day-offs/"+id, "").Code)

	var actions []string
	for _, c := range env.notifier.changes {
		actions = append(actions, c.action)
	}
	assert.Equal(t, []string{"created", "updated", "deleted"}, actions)
}

func TestListDayOffFilters(t *testing.T) {
	env := newTestEnv(t, fixedClock(2024, 6, 1))
	env.create(t, `{"title":"June break","start_date":"2024-06-10","end_date":"2024-06-12"}`)
	env.create(t, `{"title":"Sundays","start_date":"2024-01-07","end_date":"2024-01-07","is_recurring":true,"recurrence_type":"weekly"}`)
	env.create(t, `{"title":"August break","start_date":"2024-08-01","end_date":"2024-08-14"}`)

	count := func(path string) int {
		t.Helper()
		rec := env.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		var list []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		return len(list)
	}

	assert.Equal(t, 3, count("/api/day-offs"))
	assert.Equal(t, 1, count("/api/day-offs?active_on=2024-06-11"))
	assert.Equal(t, 1, count("/api/day-offs?active_on=2024-06-09"), "weekly Sunday closure")
	assert.Equal(t, 2, count("/api/day-offs?from=2024-06-08&to=2024-06-10"))
	assert.Equal(t, 0, count("/api/day-offs?active_on=2024-07-03"))

	for _, path := range []string{
		"/api/day-offs?active_on=june",
		"/api/day-offs?from=2024-06-08",
		"/api/day-offs?from=2024-06-10&to=2024-06-08",
	} {
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, path, "").Code, path)
	}
}

func TestNoticeEndpoint(t *testing.T) {
	env := newTestEnv(t, fixedClock(2024, 6, 9))
	env.create(t, `{"title":"Summer break","start_date":"2024-06-10","end_date":"2024-06-12"}`)

	rec := env.do(t, http.MethodGet, "/api/notice", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		State         string `json:"state"`
		Message       string `json:"message"`
		Start         string `json:"start"`
		End           string `json:"end"`
		DateRangeText string `json:"date_range_text"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, string(notice.StateUpcoming), view.State)
	assert.Equal(t, "Summer break", view.Message)
	assert.Equal(t, "2024-06-10", view.Start)
	assert.Equal(t, "2024-06-12", view.End)
	assert.Equal(t, "10 Jun - 12 Jun 2024", view.DateRangeText)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/notice?date=2024-06-12", "").Code, "last day")
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodGet, "/api/notice?date=2024-06-13", "").Code, "after end")
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/notice?date=tomorrow", "").Code)
}

func TestAutoDisableEndpoint(t *testing.T) {
	env := newTestEnv(t, fixedClock(2024, 6, 20))
	id := env.create(t, `{"title":"Summer break","start_date":"2024-06-10","end_date":"2024-06-12"}`)["id"].(string)

	check := func(path string, want bool) {
		t.Helper()
		rec := env.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, want, resp["auto_disable"], path)
	}

	check("/api/day-offs/"+id+"/auto-disable", true)
	check("/api/day-offs/"+id+"/auto-disable?date=2024-06-12", false)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/day-offs/missing/auto-disable", "").Code)
}

func TestFeedICS(t *testing.T) {
	env := newTestEnv(t, fixedClock(2024, 6, 1))
	env.create(t, `{"title":"Summer break","description":"Shop closed","start_date":"2024-06-10","end_date":"2024-06-12"}`)
	env.create(t, `{"title":"Stocktake","start_date":"2024-01-15","end_date":"2024-01-15","is_recurring":true,"recurrence_type":"monthly"}`)
	env.create(t, `{"title":"Last year","start_date":"2023-06-10","end_date":"2023-06-12"}`)

	rec := env.do(t, http.MethodGet, "/api/day-offs/feed.ics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar"))

	cal, err := ical.ParseCalendar(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)

	// 60 day horizon from 1 June: the June break plus stocktakes on 15 June and 15 July.
	events := cal.Events()
	require.Len(t, events, 3)

	starts := map[string]string{}
	for _, ev := range events {
		summary := ev.GetProperty(ical.ComponentPropertySummary).Value
		start := ev.GetProperty(ical.ComponentPropertyDtStart).Value
		starts[start] = summary
		switch summary {
		case "Summer break":
			assert.Equal(t, "20240613", ev.GetProperty(ical.ComponentPropertyDtEnd).Value, "DTEND is exclusive")
			assert.Equal(t, "Shop closed", ev.GetProperty(ical.ComponentPropertyDescription).Value)
		case "Stocktake":
			assert.Equal(t, "Repeats monthly", ev.GetProperty(ical.ComponentPropertyDescription).Value)
		}
	}
	assert.Equal(t, map[string]string{"20240610": "Summer break", "20240615": "Stocktake", "20240715": "Stocktake"}, starts)
}

func insertBooking(t *testing.T, db *sql.DB, id, date, tm, status string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO bookings (id, booking_date, booking_time, customer_name, service_name, status) VALUES (?, ?, ?, ?, ?, ?)",
		id, date, tm, "Customer "+id, "Haircut", status,
	)
	require.NoError(t, err, "insert booking")
}

type gridCell struct {
	Date     string            `json:"date"`
	Hour     *int              `json:"hour"`
	Bookings []json.RawMessage `json:"bookings"`
	Overflow int               `json:"overflow"`
	Total    int               `json:"total"`
}

type gridResponse struct {
	View      string     `json:"view"`
	Reference string     `json:"reference"`
	Cells     []gridCell `json:"cells"`
}

func (e *testEnv) grid(t *testing.T, path string) gridResponse {
	t.Helper()
	rec := e.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var grid gridResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	return grid
}

func (g gridResponse) cell(date string) (gridCell, bool) {
	for _, c := range g.Cells {
		if c.Date == date {
			return c, true
		}
	}
	return gridCell{}, false
}

func TestCalendarGrid(t *testing.T) {
	env := newTestEnv(t, fixedClock(2024, 6, 12))
	for i, tm := range []string{"09:00", "10:00", "11:00", "12:00", "13:00"} {
		insertBooking(t, env.db, string(rune('a'+i)), "2024-06-12", tm, "confirmed")
	}
	insertBooking(t, env.db, "x", "2024-06-12", "08:00", "cancelled")
	insertBooking(t, env.db, "far", "2024-09-01", "08:00", "confirmed")

	grid := env.grid(t, "/api/calendar")
	assert.Equal(t, "month", grid.View)
	assert.Equal(t, "2024-06-12", grid.Reference)
	require.Len(t, grid.Cells, 35)

	c, ok := grid.cell("2024-06-12")
	require.True(t, ok)
	assert.Nil(t, c.Hour)
	assert.Len(t, c.Bookings, 3)
	assert.Equal(t, 2, c.Overflow)
	assert.Equal(t, 5, c.Total)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/calendar?view=week&date=2024-06-12", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/calendar?view=year", "").Code)
}

func TestCalendarGridSkipsMalformedBookingDate(t *testing.T) {
	env := newTestEnv(t, fixedClock(2024, 6, 12))
	insertBooking(t, env.db, "good", "2024-06-12", "09:00", "confirmed")
	insertBooking(t, env.db, "bad", "2024-06-1", "10:00", "confirmed")

	grid := env.grid(t, "/api/calendar?view=month&date=2024-06-12")
	c, ok := grid.cell("2024-06-12")
	require.True(t, ok)
	assert.Equal(t, 1, c.Total)

	rec := env.do(t, http.MethodGet, "/api/calendar/slot?date=2024-06-12&hour=9", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCalendarSlot(t *testing.T) {
	env := newTestEnv(t, fixedClock(2024, 6, 12))
	insertBooking(t, env.db, "late", "2024-06-12", "10:45", "confirmed")
	insertBooking(t, env.db, "early", "2024-06-12", "10:05", "confirmed")
	insertBooking(t, env.db, "other", "2024-06-12", "11:00", "confirmed")
	insertBooking(t, env.db, "gone", "2024-06-12", "10:10", "cancelled")

	rec := env.do(t, http.MethodGet, "/api/calendar/slot?date=2024-06-12&hour=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Bookings []struct {
			ID   string `json:"id"`
			Date string `json:"date"`
		} `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Bookings, 2)
	assert.Equal(t, "early", resp.Bookings[0].ID)
	assert.Equal(t, "late", resp.Bookings[1].ID)
	assert.Equal(t, "2024-06-12", resp.Bookings[0].Date)

	for _, q := range []string{"hour=24", "hour=", "hour=ten"} {
		rec := env.do(t, http.MethodGet, "/api/calendar/slot?date=2024-06-12&"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}
