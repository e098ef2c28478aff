package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/dukerupert/opsconsole/internal/datewindow"
	"github.com/dukerupert/opsconsole/internal/model"
)

// BookingFilter narrows a booking listing. Zero values mean no constraint.
type BookingFilter struct {
	From            time.Time
	To              time.Time
	Status          string
	ExcludeStatuses []string
}

// BookingStore reads bookings written by the booking system.
type BookingStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewBookingStore(db *sql.DB, logger *slog.Logger) *BookingStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookingStore{db: db, logger: logger}
}

// List returns matching bookings ordered by date, then arrival. Rows whose
// date does not parse are logged and left out.
func (s *BookingStore) List(f BookingFilter) ([]model.Booking, error) {
	q := sq.Select("id", "booking_date", "booking_time", "customer_name", "service_name", "status", "created_at").
		From("bookings")

	if !f.From.IsZero() {
		q = q.Where(sq.GtOrEq{"booking_date": datewindow.Format(f.From)})
	}
	if !f.To.IsZero() {
		q = q.Where(sq.LtOrEq{"booking_date": datewindow.Format(f.To)})
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": f.Status})
	} else if len(f.ExcludeStatuses) > 0 {
		q = q.Where(sq.NotEq{"status": f.ExcludeStatuses})
	}
	// rowid keeps insertion order for bookings sharing a date
	q = q.OrderBy("booking_date ASC", "rowid ASC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build bookings query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		var dateStr string
		if err := rows.Scan(&b.ID, &dateStr, &b.Time, &b.CustomerName, &b.ServiceName, &b.Status, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		date, err := datewindow.ParseDate(dateStr)
		if err != nil {
			s.logger.Warn("data integrity: skipping booking", "booking_id", b.ID, "error", err)
			continue
		}
		b.Date = date
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
