package notice

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/opsconsole/internal/model"
)

// PeriodStore is the persistence the sweeper needs.
type PeriodStore interface {
	ListBannerEnabled() ([]model.DayOffPeriod, error)
	DisableBanner(id string) error
}

// Notifier is told about every period the sweep switches off.
type Notifier interface {
	PeriodAutoDisabled(p model.DayOffPeriod)
}

// Sweeper persists auto-disable decisions for periods whose end date has passed.
type Sweeper struct {
	store    PeriodStore
	notifier Notifier
	counter  func()
	logger   *slog.Logger
}

// NewSweeper builds a sweeper. notifier and onDisabled may be nil.
func NewSweeper(store PeriodStore, notifier Notifier, onDisabled func(), logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, notifier: notifier, counter: onDisabled, logger: logger}
}

// Run disables the banner of every expired one-off period as of now and
// returns the ids it switched off. A failure on one period is logged and the
// sweep carries on; only a failed listing aborts it.
func (s *Sweeper) Run(now time.Time) ([]string, error) {
	periods, err := s.store.ListBannerEnabled()
	if err != nil {
		return nil, fmt.Errorf("list banner-enabled periods: %w", err)
	}

	var disabled []string
	for _, p := range periods {
		if !ShouldAutoDisable(p, now) {
			continue
		}
		if err := s.store.DisableBanner(p.ID); err != nil {
			s.logger.Error("auto-disable failed", "period_id", p.ID, "error", err)
			continue
		}
		p.ShowBanner = false
		disabled = append(disabled, p.ID)
		s.logger.Info("day off period auto-disabled", "period_id", p.ID, "end_date", p.EndDate.Format("2006-01-02"))

		if s.counter != nil {
			s.counter()
		}
		if s.notifier != nil {
			s.notifier.PeriodAutoDisabled(p)
		}
	}
	return disabled, nil
}
