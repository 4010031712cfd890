package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Feature flags that gate scheduled runs.
const (
	FlagScheduledVMCleanup   = "scheduled_vm_cleanup"
	FlagScheduledBlobCleanup = "scheduled_blob_cleanup"
)

// ErrJobExists is returned by AddJob for a duplicate job name.
var ErrJobExists = errors.New("job already scheduled")

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// FlagFunc reports whether a feature flag is enabled. (*config.Store).FeatureFlag
// has this signature.
type FlagFunc func(name string) bool

// Scheduler runs named jobs on cron schedules. Jobs of one name never
// overlap: a tick that arrives while the previous run is still going is
// skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	running bool
	stopped context.Context
	entries map[string]cron.EntryID
	jobs    map[string]Job
}

// NewScheduler creates a Scheduler. A nil logger uses slog.Default().
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "cleanup.scheduler")

	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger:  logger,
		ctx:     context.Background(),
		entries: make(map[string]cron.EntryID),
		jobs:    make(map[string]Job),
	}
}

// AddJob schedules job under name. spec is a standard five-field cron
// expression or a descriptor such as "@daily".
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 */6 * * *"  - Every 6 hours
//   - "0 0 * * 0"    - Weekly on Sunday at midnight
func (s *Scheduler) AddJob(name, spec string, job Job) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q for job %s: %w", spec, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, name)
	}

	id, err := s.cron.AddFunc(spec, func() {
		_ = s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}
	s.entries[name] = id
	s.jobs[name] = job

	s.logger.Info("job scheduled", "job", name, "schedule", spec)
	return nil
}

// Start begins running scheduled jobs. Jobs receive ctx; the scheduler
// stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.ctx = ctx
	s.stopped = nil
	s.cron.Start()
	s.running = true

	s.logger.Info("cleanup scheduler started", "jobs", len(s.entries))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop stops the scheduler and waits for any running jobs to complete.
// Concurrent and repeated calls all wait.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	first := s.running
	if first {
		s.running = false
		// cron.Stop only signals; running jobs may still take s.mu.
		s.stopped = s.cron.Stop()
	}
	stopped := s.stopped
	s.mu.Unlock()

	if stopped == nil {
		return
	}
	<-stopped.Done()
	if first {
		s.logger.Info("cleanup scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRuns returns the next activation of every job. Times are zero until
// the scheduler has started.
func (s *Scheduler) NextRuns() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.entries))
	for name, id := range s.entries {
		out[name] = s.cron.Entry(id).Next
	}
	return out
}

// Jobs returns the scheduled job names, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunNow runs the named job synchronously, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	return s.run(name, job)
}

func (s *Scheduler) run(name string, job Job) error {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	start := time.Now()
	s.logger.Info("starting scheduled job", "job", name)

	if err := job(ctx); err != nil {
		s.logger.Error("scheduled job failed", "job", name, "error", err)
		return err
	}

	s.logger.Info("scheduled job completed", "job", name, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// VMCleanupJob cleans patternTypes in order while FlagScheduledVMCleanup is
// enabled. Every pattern is attempted; the errors are joined.
func VMCleanupJob(c *VMCleaner, patternTypes []string, enabled FlagFunc) Job {
	return func(ctx context.Context) error {
		if !enabled(FlagScheduledVMCleanup) {
			c.rt.logger.Debug("scheduled VM cleanup disabled by feature flag")
			return nil
		}

		var errs []error
		for _, pt := range patternTypes {
			if _, err := c.Run(ctx, VMCleanupRequest{PatternType: pt, Trigger: TriggerSchedule}); err != nil {
				errs = append(errs, fmt.Errorf("pattern %s: %w", pt, err))
			}
		}
		return errors.Join(errs...)
	}
}

// BlobCleanupJob cleans artifactTypes in order while
// FlagScheduledBlobCleanup is enabled. Empty artifactTypes means every
// configured policy, resolved at each run.
func BlobCleanupJob(c *BlobCleaner, artifactTypes []string, enabled FlagFunc) Job {
	return func(ctx context.Context) error {
		if !enabled(FlagScheduledBlobCleanup) {
			c.rt.logger.Debug("scheduled blob cleanup disabled by feature flag")
			return nil
		}

		types := artifactTypes
		if len(types) == 0 {
			policies, err := c.RetentionPolicies()
			if err != nil {
				return err
			}
			for _, p := range policies {
				types = append(types, p.Name)
			}
		}

		var errs []error
		for _, at := range types {
			if _, err := c.Run(ctx, BlobCleanupRequest{ArtifactType: at, Trigger: TriggerSchedule}); err != nil {
				errs = append(errs, fmt.Errorf("artifact type %s: %w", at, err))
			}
		}
		return errors.Join(errs...)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
