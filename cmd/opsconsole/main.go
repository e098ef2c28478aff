package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/opsconsole/internal/config"
	"github.com/dukerupert/opsconsole/internal/database"
	"github.com/dukerupert/opsconsole/internal/logging"
	"github.com/dukerupert/opsconsole/internal/scheduler"
	"github.com/dukerupert/opsconsole/internal/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "opsconsole: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded", "path", configPath, "timezone", cfg.App.Timezone)

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	srv := server.New(cfg, db, logger)

	sched, err := newScheduler(cfg, srv.Sweeper(), logger)
	if err != nil {
		return err
	}
	defer sched.Stop()
	sched.Start()

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := sched.Stop(); err != nil {
		logger.Error("scheduler shutdown", "error", err)
	}
	slog.Info("stopped")
	return nil
}

// newScheduler registers the banner sweep when enabled. The scheduler is
// shut down again if registration fails.
func newScheduler(cfg *config.Config, sweep scheduler.Sweep, logger *slog.Logger) (*scheduler.Scheduler, error) {
	sched, err := scheduler.New(cfg.Location(), logger)
	if err != nil {
		return nil, err
	}
	if cfg.Notice.SweepEnabled {
		if _, err := sched.AddSweep(cfg.Notice.SweepSchedule, sweep); err != nil {
			if stopErr := sched.Stop(); stopErr != nil {
				logger.Error("scheduler shutdown", "error", stopErr)
			}
			return nil, fmt.Errorf("register sweep: %w", err)
		}
	}
	return sched, nil
}
