package retention

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

// Category is the outcome of evaluating one resource.
type Category string

const (
	KeptInWindow Category = "kept_in_window"
	KeptYoung    Category = "kept_young"
	ExcludedTag  Category = "excluded_tag"
	Deferred     Category = "deferred"
	WouldDelete  Category = "would_delete"
	Deleted      Category = "deleted"
	Failed       Category = "failed"
)

// Categories lists every category in reporting order.
var Categories = []Category{KeptInWindow, KeptYoung, ExcludedTag, Deferred, WouldDelete, Deleted, Failed}

// Matcher reports whether a resource name belongs to the policy's pattern.
type Matcher func(name string) bool

// Policy is a fully resolved retention policy.
type Policy struct {
	// PatternName identifies the pattern or artifact type, for logs and results.
	PatternName string

	// Matcher filters resources. Nil matches every resource.
	Matcher Matcher `json:"-"`

	// KeepLatestCount is the number of newest resources always kept.
	KeepLatestCount int

	// AgeThresholdDays is the age a resource must strictly exceed to be deleted.
	AgeThresholdDays int

	// ExcludedTagValues protects any resource with one of these tag values.
	ExcludedTagValues []string

	// MinimumVersionsToKeep is a floor on KeepLatestCount. Nil means no floor.
	MinimumVersionsToKeep *int

	// MaxBatchSize caps the candidates of one evaluation.
	MaxBatchSize int

	// DryRun reports candidates without deleting them.
	DryRun bool
}

// EffectiveKeep is the size of the keep window.
func (p Policy) EffectiveKeep() int {
	if p.MinimumVersionsToKeep != nil && *p.MinimumVersionsToKeep > p.KeepLatestCount {
		return *p.MinimumVersionsToKeep
	}
	return p.KeepLatestCount
}

// Validate checks the numeric bounds of the policy.
func (p Policy) Validate() error {
	var errs []error
	if p.KeepLatestCount < 0 {
		errs = append(errs, fmt.Errorf("keep_latest_count must be >= 0, got %d", p.KeepLatestCount))
	}
	if p.AgeThresholdDays < 0 {
		errs = append(errs, fmt.Errorf("age_threshold_days must be >= 0, got %d", p.AgeThresholdDays))
	}
	if p.MinimumVersionsToKeep != nil && *p.MinimumVersionsToKeep < 0 {
		errs = append(errs, fmt.Errorf("minimum_versions_to_keep must be >= 0, got %d", *p.MinimumVersionsToKeep))
	}
	if p.MaxBatchSize < 1 {
		errs = append(errs, fmt.Errorf("max_batch_size must be >= 1, got %d", p.MaxBatchSize))
	}
	if len(errs) > 0 {
		return &PolicyError{Pattern: p.PatternName, Err: errors.Join(errs...)}
	}
	return nil
}

// PolicyError reports an invalid policy.
type PolicyError struct {
	Pattern string
	Err     error
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("invalid retention policy %q: %v", e.Pattern, e.Err)
}

func (e *PolicyError) Unwrap() error {
	return e.Err
}

// Resource is one cloud resource subject to retention.
type Resource struct {
	Name string

	// Group is the resource group, container or bucket holding the resource.
	Group string

	// Timestamp is the creation or last-modified time. A zero value means
	// unknown, and such a resource is never a delete candidate.
	Timestamp time.Time

	Tags map[string]string

	SizeBytes int64
}

// HasTagValue reports whether any tag value of r is in values. Tags are
// checked in key order, so the returned value is stable.
func (r Resource) HasTagValue(values []string) (string, bool) {
	for _, key := range slices.Sorted(maps.Keys(r.Tags)) {
		if v := r.Tags[key]; slices.Contains(values, v) {
			return v, true
		}
	}
	return "", false
}

// Decision is the outcome for one resource.
type Decision struct {
	Resource Resource
	Category Category

	// Rank is the position in newest-first order, or -1 for excluded resources.
	Rank int

	// Detail explains the category for reports.
	Detail string

	// Err is set for Failed decisions.
	Err error
}

// Counts summarizes a Result.
type Counts struct {
	Total        int `json:"total"`
	Matched      int `json:"matched"`
	Excluded     int `json:"excluded"`
	KeptInWindow int `json:"kept_in_window"`
	KeptYoung    int `json:"kept_young"`
	Deferred     int `json:"deferred"`
	Candidates   int `json:"candidates"`
	WouldDelete  int `json:"would_delete"`
	Deleted      int `json:"deleted"`
	Failed       int `json:"failed"`
}

// Result is the outcome of one evaluation.
type Result struct {
	Policy Policy

	// Now is the evaluation time and Cutoff the age boundary derived from it.
	Now    time.Time
	Cutoff time.Time

	// Decisions holds ranked resources in newest-first order followed by
	// excluded resources in input order.
	Decisions []Decision

	Counts Counts

	// Executed is true once Execute ran (real deletions attempted).
	Executed bool
}

// Candidates returns the decisions selected for deletion.
func (r *Result) Candidates() []Decision {
	var out []Decision
	for _, d := range r.Decisions {
		switch d.Category {
		case WouldDelete, Deleted, Failed:
			out = append(out, d)
		}
	}
	return out
}

// ByCategory returns the decisions of one category.
func (r *Result) ByCategory(c Category) []Decision {
	var out []Decision
	for _, d := range r.Decisions {
		if d.Category == c {
			out = append(out, d)
		}
	}
	return out
}

// BytesReclaimed sums the sizes of would_delete and deleted resources.
func (r *Result) BytesReclaimed() int64 {
	var total int64
	for _, d := range r.Decisions {
		if d.Category == WouldDelete || d.Category == Deleted {
			total += d.Resource.SizeBytes
		}
	}
	return total
}

func (r *Result) recount() {
	c := Counts{Total: r.Counts.Total, Matched: r.Counts.Matched}
	for _, d := range r.Decisions {
		switch d.Category {
		case ExcludedTag:
			c.Excluded++
		case KeptInWindow:
			c.KeptInWindow++
		case KeptYoung:
			c.KeptYoung++
		case Deferred:
			c.Deferred++
		case WouldDelete:
			c.WouldDelete++
			c.Candidates++
		case Deleted:
			c.Deleted++
			c.Candidates++
		case Failed:
			c.Failed++
			c.Candidates++
		}
	}
	r.Counts = c
}

// Deleter removes one resource.
type Deleter interface {
	Delete(ctx context.Context, r Resource) error
}

// DeleterFunc adapts a function to Deleter.
type DeleterFunc func(ctx context.Context, r Resource) error

// Delete implements Deleter.
func (f DeleterFunc) Delete(ctx context.Context, r Resource) error {
	return f(ctx, r)
}
