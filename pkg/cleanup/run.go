package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"azops-hq/sweeper/pkg/cleanup/history"
	"azops-hq/sweeper/pkg/retention"
	"azops-hq/sweeper/pkg/telemetry/logging"
	"azops-hq/sweeper/pkg/telemetry/tracing"
)

// Domains label runs in history, metrics and logs.
const (
	DomainVM   = "vm"
	DomainBlob = "blob"
)

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomePending = "pending_confirmation"
	OutcomeError   = "error"
)

// Triggers identify what started a run.
const (
	TriggerCLI      = "cli"
	TriggerSchedule = "schedule"
)

// Recorder persists finished runs. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// RunObserver counts finished runs. The metrics collector implements it.
type RunObserver interface {
	RecordRun(domain, outcome string)
}

// Option configures a VMCleaner or BlobCleaner.
type Option func(*runtime)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *runtime) {
		rt.logger = logger
	}
}

// WithHistory records every run in r.
func WithHistory(r Recorder) Option {
	return func(rt *runtime) {
		rt.recorder = r
	}
}

// WithRunObserver reports run outcomes, e.g. to metrics.
func WithRunObserver(o RunObserver) Option {
	return func(rt *runtime) {
		rt.observer = o
	}
}

// WithTracer sets the tracer used for run spans.
func WithTracer(t trace.Tracer) Option {
	return func(rt *runtime) {
		rt.tracer = t
	}
}

// WithClock overrides time.Now for run timestamps and age cutoffs.
func WithClock(now func() time.Time) Option {
	return func(rt *runtime) {
		rt.now = now
	}
}

// WithEvaluatorOptions passes extra options to the retention evaluator,
// such as retention.WithTimeout or retention.WithObserver.
func WithEvaluatorOptions(opts ...retention.Option) Option {
	return func(rt *runtime) {
		rt.evalOpts = append(rt.evalOpts, opts...)
	}
}

// runtime holds the plumbing shared by both cleaners.
type runtime struct {
	domain   string
	logger   *slog.Logger
	recorder Recorder
	observer RunObserver
	tracer   trace.Tracer
	now      func() time.Time
	newID    func() string
	evalOpts []retention.Option
}

func newRuntime(domain string, opts []Option) runtime {
	rt := runtime{
		domain: domain,
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(&rt)
	}
	if rt.tracer == nil {
		rt.tracer = otel.Tracer("azops-hq/sweeper/cleanup")
	}
	rt.logger = rt.logger.With("component", "cleanup."+domain)
	return rt
}

func (rt *runtime) evaluator() *retention.Evaluator {
	opts := []retention.Option{
		retention.WithDomain(rt.domain),
		retention.WithLogger(rt.logger),
		retention.WithClock(rt.now),
		retention.WithTracer(rt.tracer),
	}
	return retention.NewEvaluator(append(opts, rt.evalOpts...)...)
}

// runState tracks one cleanup run from begin to finish.
type runState struct {
	record history.Run
	span   trace.Span
}

func (rt *runtime) begin(ctx context.Context, target, environment, trigger string) (context.Context, *runState) {
	id := rt.newID()

	ctx = logging.WithRunID(ctx, id)
	ctx = logging.WithDomain(ctx, rt.domain)
	ctx = logging.WithEnvironment(ctx, environment)

	ctx, span := rt.tracer.Start(ctx, "cleanup."+rt.domain, trace.WithAttributes(
		attribute.String("sweeper.run_id", id),
		attribute.String("sweeper.target", target),
		attribute.String("sweeper.environment", environment),
	))

	rs := &runState{
		record: history.Run{
			ID:          id,
			Domain:      rt.domain,
			Target:      target,
			Environment: environment,
			Trigger:     trigger,
			StartedAt:   rt.now().UTC(),
		},
		span: span,
	}
	return ctx, rs
}

// add folds the counts of one evaluation into the run record.
func (rs *runState) add(result *retention.Result) {
	c := result.Counts
	rs.record.Matched += c.Matched
	rs.record.Candidates += c.Candidates
	rs.record.Deleted += c.Deleted
	rs.record.Failed += c.Failed
	rs.record.Deferred += c.Deferred
	rs.record.BytesReclaimed += result.BytesReclaimed()
}

// finish closes the span, counts the outcome and records the run. History
// failures are logged and never fail the run.
func (rt *runtime) finish(ctx context.Context, rs *runState, outcome string, err error) {
	rs.record.FinishedAt = rt.now().UTC()
	if err != nil {
		outcome = OutcomeError
		rs.record.Error = err.Error()
	}
	rs.record.Outcome = outcome

	rs.span.SetAttributes(
		attribute.String("sweeper.outcome", outcome),
		attribute.Bool("sweeper.dry_run", rs.record.DryRun),
		attribute.Int("sweeper.candidates", rs.record.Candidates),
		attribute.Int("sweeper.deleted", rs.record.Deleted),
	)
	tracing.End(rs.span, err)

	if rt.observer != nil {
		rt.observer.RecordRun(rt.domain, outcome)
	}

	if rt.recorder != nil {
		// The run context may already be cancelled; the record is still wanted.
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rerr := rt.recorder.Record(recordCtx, rs.record); rerr != nil {
			rt.logger.ErrorContext(ctx, "failed to record cleanup run", "error", rerr)
		}
	}

	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	rt.logger.Log(ctx, level, "cleanup run finished",
		"target", rs.record.Target,
		"outcome", outcome,
		"dry_run", rs.record.DryRun,
		"candidates", rs.record.Candidates,
		"deleted", rs.record.Deleted,
		"failed", rs.record.Failed,
		"duration_ms", rs.record.Duration().Milliseconds(),
	)
}

// outcomeOf derives the outcome of a run that returned no error.
func outcomeOf(failed int, pending bool) string {
	switch {
	case pending:
		return OutcomePending
	case failed > 0:
		return OutcomePartial
	default:
		return OutcomeSuccess
	}
}

func resolveDryRun(requested *bool, configured bool) bool {
	if requested != nil {
		return *requested
	}
	return configured
}
