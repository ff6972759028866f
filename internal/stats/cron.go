// Package stats runs a periodic background snapshot logger for the example
// commands, the same shape as a scheduled maintenance job in a long-running
// service.
package stats

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// StartSnapshotCron registers snapshot on the given cron schedule and starts
// the scheduler. The returned *cron.Cron must be stopped on shutdown:
//
//	c, err := stats.StartSnapshotCron(cfg.StatsSchedule, snapshot)
//	defer c.Stop()  // waits for any in-flight tick to finish
func StartSnapshotCron(schedule string, snapshot func() string) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		slog.Info("channel stats", "component", "stats-cron", "snapshot", snapshot())
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	slog.Info("stats cron started", "component", "stats-cron", "schedule", schedule)
	return c, nil
}
