package schedule

import (
	"context"
	"fmt"

	"github.com/opstools/snapreaper/internal/logger"
	"github.com/robfig/cron/v3"
)

// Run executes job on the given cron schedule until ctx is cancelled. A
// failed run is logged and the schedule keeps going; the next tick is the
// retry mechanism.
func Run(ctx context.Context, spec string, log *logger.Logger, job func() error) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := job(); err != nil {
			log.Error("Scheduled run failed", logger.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	log.Info("Scheduler started", logger.F("SCHEDULE", spec))
	c.Start()

	<-ctx.Done()
	// Let an in-flight run finish before returning.
	<-c.Stop().Done()
	log.Info("Scheduler stopped")
	return nil
}
