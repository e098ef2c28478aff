package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/dukerupert/opsconsole/internal/datewindow"
	"github.com/dukerupert/opsconsole/internal/recurrence"
)

// DayOffPeriod is a span of calendar days the business is closed, optionally
// repeating and optionally surfaced to customers as a notice banner.
type DayOffPeriod struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	ShowBanner    bool            `json:"show_banner"`
	BannerMessage *string         `json:"banner_message"`
	Recurrence    recurrence.Kind `json:"recurrence_type"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsRecurring reports whether the period repeats.
func (p DayOffPeriod) IsRecurring() bool {
	return p.Recurrence.IsRecurring()
}

// Window is the template window [StartDate, EndDate].
func (p DayOffPeriod) Window() datewindow.Window {
	return datewindow.NewWindow(p.StartDate, p.EndDate)
}

// Message is the banner text, falling back to the title.
func (p DayOffPeriod) Message() string {
	if p.BannerMessage != nil && strings.TrimSpace(*p.BannerMessage) != "" {
		return *p.BannerMessage
	}
	return p.Title
}

// Occurrences expands the period over the inclusive horizon.
func (p DayOffPeriod) Occurrences(horizonStart, horizonEnd time.Time) ([]recurrence.Occurrence, error) {
	return recurrence.Expand(p.Recurrence, p.StartDate, p.EndDate, horizonStart, horizonEnd)
}

// Validate checks the period's fields and returns ValidationErrors
// listing every offending field.
func (p DayOffPeriod) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(p.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "title is required"})
	}
	if p.StartDate.IsZero() {
		errs = append(errs, FieldError{Field: "start_date", Message: "start_date is required"})
	}
	if p.EndDate.IsZero() {
		errs = append(errs, FieldError{Field: "end_date", Message: "end_date is required"})
	}
	if !p.StartDate.IsZero() && !p.EndDate.IsZero() && !p.Window().Valid() {
		errs = append(errs, FieldError{Field: "end_date", Message: "end_date must not be before start_date"})
	}
	if !p.Recurrence.Valid() {
		errs = append(errs, FieldError{Field: "recurrence_type", Message: "recurrence_type must be weekly, monthly or yearly when is_recurring is set, and empty otherwise"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// MarshalJSON writes dates as YYYY-MM-DD and adds the is_recurring flag
// and recurrence_text clients expect alongside recurrence_type.
func (p DayOffPeriod) MarshalJSON() ([]byte, error) {
	type alias DayOffPeriod
	return json.Marshal(struct {
		alias
		StartDate      string `json:"start_date"`
		EndDate        string `json:"end_date"`
		IsRecurring    bool   `json:"is_recurring"`
		RecurrenceText string `json:"recurrence_text"`
	}{
		alias:          alias(p),
		StartDate:      datewindow.Format(p.StartDate),
		EndDate:        datewindow.Format(p.EndDate),
		IsRecurring:    p.IsRecurring(),
		RecurrenceText: p.Recurrence.Describe(),
	})
}
