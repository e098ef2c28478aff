package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/opsconsole/internal/config"
	"github.com/dukerupert/opsconsole/internal/datewindow"
	"github.com/dukerupert/opsconsole/internal/handler"
	"github.com/dukerupert/opsconsole/internal/metrics"
	"github.com/dukerupert/opsconsole/internal/middleware"
	"github.com/dukerupert/opsconsole/internal/notice"
	"github.com/dukerupert/opsconsole/internal/store"
	ws "github.com/dukerupert/opsconsole/internal/websocket"
)

type Server struct {
	cfg       *config.Config
	db        *sql.DB
	hub       *ws.Hub
	metrics   *metrics.Metrics
	dayOffH   *handler.DayOffHandler
	noticeH   *handler.NoticeHandler
	feedH     *handler.FeedHandler
	calendarH *handler.CalendarHandler
	sweeper   *notice.Sweeper
	logger    *slog.Logger
}

func New(cfg *config.Config, db *sql.DB, logger *slog.Logger) *Server {
	s := &Server{cfg: cfg, db: db, logger: logger}

	if cfg.Metrics.Enabled {
		s.metrics = metrics.New()
	}
	s.hub = ws.NewHub(logger)
	s.metrics.TrackClients(s.hub.ClientCount)

	dayOffStore := store.NewDayOffStore(db)
	bookingStore := store.NewBookingStore(db, logger.With("component", "bookings"))
	resolver := notice.NewResolver(logger.With("component", "notice"), s.metrics)

	s.dayOffH = handler.NewDayOffHandler(dayOffStore, s.hub, s.Today, logger.With("component", "day_off"))
	s.noticeH = handler.NewNoticeHandler(dayOffStore, resolver, s.Today, logger.With("component", "notice"))
	s.feedH = handler.NewFeedHandler(dayOffStore, s.Today, cfg.Feed.HorizonDays, cfg.App.Name, logger.With("component", "feed"))
	s.calendarH = handler.NewCalendarHandler(bookingStore, s.metrics, s.Today, logger.With("component", "calendar"))
	s.sweeper = notice.NewSweeper(dayOffStore, s.hub, s.metrics.AutoDisabled, logger.With("component", "sweep"))

	return s
}

// Today is the current calendar date in the business timezone.
func (s *Server) Today() time.Time {
	return datewindow.Normalize(time.Now().In(s.cfg.Location()))
}

// Sweeper returns the banner expiry sweep for the scheduler.
func (s *Server) Sweeper() *notice.Sweeper {
	return s.sweeper
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger))
	if s.metrics != nil {
		mux.Handle("GET "+s.cfg.Metrics.Path, s.metrics.Handler())
	}

	// Day off API routes
	mux.HandleFunc("POST /api/day-offs", s.dayOffH.Create)
	mux.HandleFunc("GET /api/day-offs", s.dayOffH.List)
	mux.HandleFunc("GET /api/day-offs/feed.ics", s.feedH.ICS)
	mux.HandleFunc("GET /api/day-offs/{id}", s.dayOffH.Get)
	mux.HandleFunc("PUT /api/day-offs/{id}", s.dayOffH.Update)
	mux.HandleFunc("DELETE /api/day-offs/{id}", s.dayOffH.Delete)
	mux.HandleFunc("GET /api/day-offs/{id}/auto-disable", s.dayOffH.AutoDisable)

	// Customer notice
	mux.HandleFunc("GET /api/notice", s.noticeH.Get)

	// Staff calendar
	mux.HandleFunc("GET /api/calendar", s.calendarH.Grid)
	mux.HandleFunc("GET /api/calendar/slot", s.calendarH.Slot)

	var h http.Handler = mux
	if s.metrics != nil {
		h = middleware.Metrics(s.metrics)(h)
	}
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
