package health

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// CheckFunc reports whether a component is healthy.
type CheckFunc func(ctx context.Context) error

// Check statuses.
const (
	StatusOK        = "ok"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// ErrCheckTimeout is reported when a check does not return in time.
var ErrCheckTimeout = errors.New("health check timeout")

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// Status is the aggregated health of the process.
type Status struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Ready reports whether every check passed.
func (s Status) Ready() bool {
	return s.Status == StatusReady
}

// Checker manages health checks for the serve command's components.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc

	checkTimeout time.Duration
	now          func() time.Time
}

// New creates a Checker. A zero timeout defaults to 5 seconds per check.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout <= 0 {
		checkTimeout = 5 * time.Second
	}
	return &Checker{
		checks:       make(map[string]CheckFunc),
		checkTimeout: checkTimeout,
		now:          time.Now,
	}
}

// RegisterCheck registers check under name, replacing any previous one.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Checks returns the registered check names, sorted.
func (c *Checker) Checks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Liveness reports that the process is running.
func (c *Checker) Liveness() Status {
	return Status{Status: StatusOK, Timestamp: c.now()}
}

// Readiness runs every registered check concurrently.
func (c *Checker) Readiness(ctx context.Context) Status {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := c.run(ctx, check)

			mu.Lock()
			results[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := StatusReady
	for _, result := range results {
		if result.Status == StatusUnhealthy {
			status = StatusDegraded
		}
	}
	return Status{Status: status, Checks: results, Timestamp: c.now()}
}

func (c *Checker) run(ctx context.Context, check CheckFunc) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()
	errCh := make(chan error, 1)
	go func() {
		errCh <- check(ctx)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		err = ErrCheckTimeout
	}

	result := CheckResult{Status: StatusOK, Duration: time.Since(start)}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	return result
}

// DocumentLoader is satisfied by *config.Store.
type DocumentLoader interface {
	ValidateAll() error
}

// ConfigCheck fails while any configuration document does not validate.
func ConfigCheck(store DocumentLoader) CheckFunc {
	return func(context.Context) error {
		return store.ValidateAll()
	}
}
