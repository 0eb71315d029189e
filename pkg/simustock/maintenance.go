package simustock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Defaults for history maintenance.
const (
	DefaultMaintenanceSchedule = "0 3 * * *"
	DefaultHistoryRetention    = 30 * 24 * time.Hour
)

// StartMaintenance schedules history pruning with a standard 5-field cron
// expression evaluated in B3 local time. Entries older than retention are
// removed on every run. Calling it again replaces the previous schedule.
func (c *Core) StartMaintenance(spec string, retention time.Duration) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultMaintenanceSchedule
	}
	if retention <= 0 {
		return errors.New("history retention must be positive")
	}

	scheduler := cron.New(
		cron.WithLocation(saoPauloLocation),
		cron.WithLogger(cronLogger{logger: c.logger}),
	)
	if _, err := scheduler.AddFunc(spec, func() {
		c.runHistoryPrune(retention)
	}); err != nil {
		return fmt.Errorf("register history prune: %w", err)
	}

	c.mu.Lock()
	prev := c.maintenance
	c.maintenance = scheduler
	c.mu.Unlock()
	if prev != nil {
		<-prev.Stop().Done()
	}

	scheduler.Start()
	c.logger.Info("history maintenance scheduled", "schedule", spec, "retention", retention.String())
	return nil
}

// StopMaintenance stops the scheduler and waits for a running prune.
func (c *Core) StopMaintenance() {
	c.mu.Lock()
	scheduler := c.maintenance
	c.maintenance = nil
	c.mu.Unlock()
	if scheduler == nil {
		return
	}
	<-scheduler.Stop().Done()
}

func (c *Core) runHistoryPrune(retention time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := c.now().Add(-retention)
	removed, err := c.PruneInsightHistory(ctx, cutoff)
	if err != nil {
		c.logger.Error("history prune failed", "err", err)
		return
	}
	c.logger.Info("history pruned", "removed", removed, "cutoff", cutoff.UTC().Format(time.RFC3339))
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"err", err}, keysAndValues...)...)
}
