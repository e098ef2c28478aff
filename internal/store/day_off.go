package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/opsconsole/internal/datewindow"
	"github.com/dukerupert/opsconsole/internal/model"
	"github.com/dukerupert/opsconsole/internal/recurrence"
)

// ErrNotFound is returned by mutations addressed to a missing record.
var ErrNotFound = errors.New("not found")

const dayOffColumns = `id, title, description, start_date, end_date, show_banner, banner_message,
	is_recurring, recurrence_type, created_at, updated_at`

// DayOffStore persists day-off periods. Create and Update validate before
// touching the database.
type DayOffStore struct {
	db *sql.DB
}

func NewDayOffStore(db *sql.DB) *DayOffStore {
	return &DayOffStore{db: db}
}

func (s *DayOffStore) Create(p model.DayOffPeriod) (*model.DayOffPeriod, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	isRecurring, recurrenceType := p.Recurrence.Fields()

	_, err := s.db.Exec(
		`INSERT INTO day_off_periods (id, title, description, start_date, end_date, show_banner, banner_message, is_recurring, recurrence_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Title, p.Description, datewindow.Format(p.StartDate), datewindow.Format(p.EndDate),
		boolToInt(p.ShowBanner), nullString(p.BannerMessage), boolToInt(isRecurring), nullString(recurrenceType),
	)
	if err != nil {
		return nil, fmt.Errorf("insert day off period: %w", err)
	}

	return s.GetByID(id)
}

// GetByID returns nil, nil when no period has the id.
func (s *DayOffStore) GetByID(id string) (*model.DayOffPeriod, error) {
	row := s.db.QueryRow(`SELECT `+dayOffColumns+` FROM day_off_periods WHERE id = ?`, id)
	p, err := scanDayOff(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query day off period: %w", err)
	}
	return p, nil
}

func (s *DayOffStore) List() ([]model.DayOffPeriod, error) {
	return s.query(`SELECT ` + dayOffColumns + ` FROM day_off_periods ORDER BY start_date ASC, id ASC`)
}

// ListBannerEnabled returns the periods still eligible for a customer notice.
func (s *DayOffStore) ListBannerEnabled() ([]model.DayOffPeriod, error) {
	return s.query(`SELECT ` + dayOffColumns + ` FROM day_off_periods WHERE show_banner = 1 ORDER BY start_date ASC, id ASC`)
}

// ListActiveOn returns the periods with an occurrence covering date.
func (s *DayOffStore) ListActiveOn(date time.Time) ([]model.DayOffPeriod, error) {
	return s.ListOverlapping(datewindow.NewWindow(date, date))
}

// ListOverlapping returns the periods with at least one occurrence sharing a
// day with w. Recurring periods are expanded in Go; records that no longer
// validate are left out.
func (s *DayOffStore) ListOverlapping(w datewindow.Window) ([]model.DayOffPeriod, error) {
	candidates, err := s.query(
		`SELECT `+dayOffColumns+` FROM day_off_periods
		 WHERE is_recurring = 1 OR (start_date <= ? AND end_date >= ?)
		 ORDER BY start_date ASC, id ASC`,
		datewindow.Format(w.End), datewindow.Format(w.Start),
	)
	if err != nil {
		return nil, err
	}

	var periods []model.DayOffPeriod
	for _, p := range candidates {
		if p.Validate() != nil {
			continue
		}
		occs, err := p.Occurrences(w.Start, w.End)
		if err != nil || len(occs) == 0 {
			continue
		}
		periods = append(periods, p)
	}
	return periods, nil
}

// Update replaces every editable field of the period.
func (s *DayOffStore) Update(id string, p model.DayOffPeriod) (*model.DayOffPeriod, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	isRecurring, recurrenceType := p.Recurrence.Fields()
	result, err := s.db.Exec(
		`UPDATE day_off_periods
		 SET title = ?, description = ?, start_date = ?, end_date = ?, show_banner = ?, banner_message = ?,
		     is_recurring = ?, recurrence_type = ?
		 WHERE id = ?`,
		p.Title, p.Description, datewindow.Format(p.StartDate), datewindow.Format(p.EndDate),
		boolToInt(p.ShowBanner), nullString(p.BannerMessage), boolToInt(isRecurring), nullString(recurrenceType), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update day off period: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return nil, err
	}

	return s.GetByID(id)
}

// DisableBanner turns off the customer notice for a period.
func (s *DayOffStore) DisableBanner(id string) error {
	result, err := s.db.Exec(`UPDATE day_off_periods SET show_banner = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("disable banner: %w", err)
	}
	return requireAffected(result)
}

func (s *DayOffStore) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM day_off_periods WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete day off period: %w", err)
	}
	return requireAffected(result)
}

func (s *DayOffStore) query(q string, args ...any) ([]model.DayOffPeriod, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query day off periods: %w", err)
	}
	defer rows.Close()

	var periods []model.DayOffPeriod
	for rows.Next() {
		p, err := scanDayOff(rows)
		if err != nil {
			return nil, fmt.Errorf("scan day off period: %w", err)
		}
		periods = append(periods, *p)
	}
	return periods, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanDayOff decodes one row. Content that no longer parses (dates or
// recurrence edited directly in the database) is kept as zero dates or
// recurrence.Invalid so Validate flags it downstream.
func scanDayOff(sc scanner) (*model.DayOffPeriod, error) {
	var (
		p                        model.DayOffPeriod
		startStr, endStr         string
		showBanner, isRecurring  int
		bannerMsg, recurrenceStr sql.NullString
	)

	err := sc.Scan(&p.ID, &p.Title, &p.Description, &startStr, &endStr, &showBanner, &bannerMsg,
		&isRecurring, &recurrenceStr, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.StartDate, _ = datewindow.ParseDate(startStr)
	p.EndDate, _ = datewindow.ParseDate(endStr)
	p.ShowBanner = showBanner != 0
	if bannerMsg.Valid {
		p.BannerMessage = &bannerMsg.String
	}

	var typ *string
	if recurrenceStr.Valid {
		typ = &recurrenceStr.String
	}
	kind, err := recurrence.FromFields(isRecurring != 0, typ)
	if err != nil {
		kind = recurrence.Invalid
	}
	p.Recurrence = kind

	return &p, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
