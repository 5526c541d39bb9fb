package refine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSchedule runs refinement at UTC midnight.
const DefaultSchedule = "0 0 * * *"

// Scheduler runs a Job on a cron schedule evaluated in UTC.
type Scheduler struct {
	cron *cron.Cron
	job  *Job

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler for job.
func NewScheduler(job *Job) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		job:  job,
	}
}

// Schedule registers the job under a standard five-field cron expression.
func (s *Scheduler) Schedule(ctx context.Context, expr string) error {
	if expr == "" {
		expr = DefaultSchedule
	}
	if _, err := s.cron.AddFunc(expr, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("adding refinement schedule %q: %w", expr, err)
	}
	zap.S().Infow("Refinement scheduled", "cron", expr, "timezone", "UTC")
	return nil
}

// runOnce skips a tick while the previous run is still going.
func (s *Scheduler) runOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		zap.S().Warn("Previous refinement still running, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	gen, err := s.job.Run(ctx)
	switch {
	case err != nil:
		zap.S().Errorf("Scheduled refinement failed: %v", err)
	case gen == nil:
		zap.S().Info("Scheduled refinement: no new feedback")
	default:
		zap.S().Infof("Scheduled refinement created generation %d", gen.ID)
	}
}

// Next returns when the job fires next, or the zero time if unscheduled.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Start begins the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
