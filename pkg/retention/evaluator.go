package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoDeleter is returned by Execute when real deletion is requested
// without a Deleter.
var ErrNoDeleter = errors.New("retention: deleter is required when not in dry-run mode")

// Observer receives a summary of every finished evaluation.
type Observer interface {
	Evaluated(domain string, result *Result, elapsed time.Duration)
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// WithTimeout bounds each Evaluate call. Candidates not deleted when the
// budget runs out are marked failed.
func WithTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		e.timeout = d
	}
}

// WithObserver reports finished evaluations, e.g. to metrics.
func WithObserver(o Observer) Option {
	return func(e *Evaluator) {
		e.observer = o
	}
}

// WithTracer sets the tracer used for evaluation spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Evaluator) {
		e.tracer = t
	}
}

// WithDomain labels logs, spans and observer calls (e.g. "vm", "blob").
func WithDomain(domain string) Option {
	return func(e *Evaluator) {
		e.domain = domain
	}
}

// Evaluator applies retention policies to resource snapshots. It holds no
// per-evaluation state and is safe for concurrent use.
type Evaluator struct {
	now      func() time.Time
	logger   *slog.Logger
	timeout  time.Duration
	observer Observer
	tracer   trace.Tracer
	domain   string
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		now:    time.Now,
		logger: slog.Default(),
		domain: "generic",
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("azops-hq/sweeper/retention")
	}
	e.logger = e.logger.With("component", "retention", "domain", e.domain)
	return e
}

// Evaluate plans policy against resources and, unless the policy is a dry
// run, deletes the candidates through deleter.
func (e *Evaluator) Evaluate(ctx context.Context, policy Policy, resources []Resource, deleter Deleter) (*Result, error) {
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "retention.Evaluate", trace.WithAttributes(
		attribute.String("sweeper.domain", e.domain),
		attribute.String("sweeper.pattern", policy.PatternName),
		attribute.Bool("sweeper.dry_run", policy.DryRun),
		attribute.Int("sweeper.resources", len(resources)),
	))
	defer span.End()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	result, err := e.Plan(policy, resources)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if !policy.DryRun {
		if err := e.Execute(ctx, result, deleter); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	span.SetAttributes(
		attribute.Int("sweeper.candidates", result.Counts.Candidates),
		attribute.Int("sweeper.failed", result.Counts.Failed),
	)
	if e.observer != nil {
		e.observer.Evaluated(e.domain, result, time.Since(start))
	}
	return result, nil
}

// Plan runs the selection pipeline without side effects. Candidates are
// reported as would_delete. The only error is an invalid policy.
func (e *Evaluator) Plan(policy Policy, resources []Resource) (*Result, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	now := e.now()
	cutoff := now.AddDate(0, 0, -policy.AgeThresholdDays)

	result := &Result{
		Policy: policy,
		Now:    now,
		Cutoff: cutoff,
	}
	result.Counts.Total = len(resources)

	var ranked, excluded []Decision
	for _, r := range resources {
		if policy.Matcher != nil && !policy.Matcher(r.Name) {
			continue
		}
		result.Counts.Matched++

		if value, ok := r.HasTagValue(policy.ExcludedTagValues); ok {
			excluded = append(excluded, Decision{
				Resource: r,
				Category: ExcludedTag,
				Rank:     -1,
				Detail:   fmt.Sprintf("protected by tag value %q", value),
			})
			continue
		}
		ranked = append(ranked, Decision{Resource: r})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Resource.Timestamp.After(ranked[j].Resource.Timestamp)
	})

	keep := policy.EffectiveKeep()
	candidates := 0
	for i := range ranked {
		d := &ranked[i]
		d.Rank = i

		switch {
		case i < keep:
			d.Category = KeptInWindow
			d.Detail = fmt.Sprintf("within latest %d", keep)
		case d.Resource.Timestamp.IsZero():
			d.Category = KeptYoung
			d.Detail = "age unknown"
		case !d.Resource.Timestamp.Before(cutoff):
			d.Category = KeptYoung
			d.Detail = fmt.Sprintf("younger than %d days", policy.AgeThresholdDays)
		case candidates >= policy.MaxBatchSize:
			d.Category = Deferred
			d.Detail = fmt.Sprintf("batch limit of %d reached", policy.MaxBatchSize)
		default:
			d.Category = WouldDelete
			d.Detail = fmt.Sprintf("older than %d days", policy.AgeThresholdDays)
			candidates++
		}
	}

	result.Decisions = append(ranked, excluded...)
	result.recount()

	e.logger.Debug("retention plan computed",
		"pattern", policy.PatternName,
		"total", result.Counts.Total,
		"matched", result.Counts.Matched,
		"excluded", result.Counts.Excluded,
		"candidates", result.Counts.Candidates,
		"deferred", result.Counts.Deferred,
		"effective_keep", keep,
	)
	return result, nil
}

// Execute deletes the candidates of a plan one at a time. A failed deletion
// is recorded on its Decision and the batch continues. Once ctx is done the
// remaining candidates are marked failed with the context error.
func (e *Evaluator) Execute(ctx context.Context, result *Result, deleter Deleter) error {
	if deleter == nil {
		return ErrNoDeleter
	}

	for i := range result.Decisions {
		d := &result.Decisions[i]
		if d.Category != WouldDelete {
			continue
		}

		if err := ctx.Err(); err != nil {
			d.Category = Failed
			d.Err = err
			continue
		}

		if err := deleter.Delete(ctx, d.Resource); err != nil {
			d.Category = Failed
			d.Err = err
			e.logger.Error("failed to delete resource",
				"resource", d.Resource.Name,
				"group", d.Resource.Group,
				"error", err,
			)
			continue
		}

		d.Category = Deleted
		e.logger.Info("deleted resource",
			"resource", d.Resource.Name,
			"group", d.Resource.Group,
			"timestamp", d.Resource.Timestamp,
		)
	}

	result.Executed = true
	result.recount()

	e.logger.Info("retention batch executed",
		"pattern", result.Policy.PatternName,
		"deleted", result.Counts.Deleted,
		"failed", result.Counts.Failed,
	)
	return nil
}
