// Package sched runs the backup pipeline on a cron schedule. Without a
// schedule the pipeline runs exactly once; with one, the process stays
// resident and fires runs until the context is cancelled.
package sched

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cloudsnap/cloudsnap/pkg/plog"
)

// Job is one complete pipeline run.
type Job func(ctx context.Context) error

// ParseSchedule validates a five-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return schedule, nil
}

// Run fires the job at every schedule tick until the context is cancelled.
// A failed run is logged and the schedule keeps going; the next run re-plans
// from a fresh catalog scan anyway. Overlapping runs are never started.
func Run(ctx context.Context, schedule cron.Schedule, job Job) error {
	for {
		next := schedule.Next(time.Now())
		plog.Info("Next scheduled backup run", "at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(next)):
		}

		if err := job(ctx); err != nil {
			plog.Error("Scheduled backup run failed", "error", err)
		}
	}
}
