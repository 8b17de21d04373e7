// Package scheduler dispatches mirror runs on the fixed UTC schedule: an
// incremental run every night and a full update once a month.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/epgforge/epg-mirror/internal/config"
	"github.com/epgforge/epg-mirror/internal/models"
)

// Trigger pairs a cron expression with the run mode it selects.
type Trigger struct {
	Spec string
	Mode models.RunMode
}

// Triggers is the mirror's schedule. The monthly trigger is the only one that
// selects full mode; it fires an hour after the nightly run so the two never
// share an instant.
func Triggers() []Trigger {
	return []Trigger{
		{Spec: "0 0 * * *", Mode: models.RunModeDaily},
		{Spec: "0 1 1 * *", Mode: models.RunModeFull},
	}
}

// RunFunc executes one mirror run in the given mode.
type RunFunc func(ctx context.Context, mode models.RunMode)

// Scheduler evaluates the trigger table in UTC and calls the run function
// for every firing.
type Scheduler struct {
	cron *cron.Cron
	run  RunFunc
}

// New creates a scheduler with every trigger registered.
func New(run RunFunc) (*Scheduler, error) {
	logger := config.GetLogger()

	s := &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		run:  run,
	}
	for _, trigger := range Triggers() {
		_, err := s.cron.AddFunc(trigger.Spec, func() {
			s.run(context.Background(), trigger.Mode)
		})
		if err != nil {
			return nil, err
		}
		logger.Info().
			Str("spec", trigger.Spec).
			Str("mode", trigger.Mode.String()).
			Msg("Trigger scheduled")
	}
	return s, nil
}

// Start begins dispatching in a background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops dispatching. The returned context completes once any run that
// is currently executing has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Entries exposes the scheduled entries, sorted by next activation.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}
