// Package jobs runs the recurring work of the API (order materialization,
// schedule top-up, ERP imports and audit retention) on cron schedules.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	applog "github.com/fieldops/fieldservice-api/internal/logger"
	"github.com/fieldops/fieldservice-api/internal/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Func is the body of a job. It receives a context bounded by the job timeout.
type Func func(ctx context.Context) error

// Scheduler manages background jobs using cron scheduling.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration
	mu      sync.Mutex
	jobs    map[string]cron.EntryID
}

// NewScheduler creates a scheduler whose jobs run in loc and are cancelled after timeout
func NewScheduler(logger *zap.Logger, loc *time.Location, timeout time.Duration) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(cron.WithSeconds(), cron.WithLocation(loc), cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		logger:  logger,
		timeout: timeout,
		jobs:    make(map[string]cron.EntryID),
	}
}

func (s *Scheduler) Start() {
	s.logger.Info("starting job scheduler", zap.Strings("jobs", s.JobNames()))
	s.cron.Start()
}

// Stop stops scheduling; the returned context is done once running jobs complete
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("stopping job scheduler")
	return s.cron.Stop()
}

// AddJob registers fn under name. cronExpr uses the 6-field format with seconds,
// e.g. "0 0 5 * * *" for 05:00 daily, or a descriptor such as "@every 1h".
func (s *Scheduler) AddJob(name string, cronExpr string, fn Func) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	entryID, err := s.cron.AddFunc(cronExpr, func() { s.Run(name, fn) })
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.logger.Info("added scheduled job",
		zap.String("job_name", name),
		zap.String("cron_expr", cronExpr))
	return nil
}

// Run executes fn once with the job timeout, logging and counting the outcome.
// Cron triggers go through it; it is also used for runs at startup.
func (s *Scheduler) Run(name string, fn Func) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	log := applog.WithJob(s.logger, name)
	log.Info("running scheduled job")

	if err := fn(ctx); err != nil {
		metrics.JobRuns.WithLabelValues(name, "error").Inc()
		log.Error("scheduled job failed",
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}

	metrics.JobRuns.WithLabelValues(name, "success").Inc()
	log.Info("completed scheduled job", zap.Duration("duration", time.Since(start)))
}

func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.cron.Remove(entryID)
	delete(s.jobs, name)

	s.logger.Info("removed scheduled job", zap.String("job_name", name))
	return nil
}

// JobNames returns the registered job names in alphabetical order
func (s *Scheduler) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
