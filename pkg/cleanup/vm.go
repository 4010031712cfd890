package cleanup

import (
	"context"
	"fmt"
	"time"

	"azops-hq/sweeper/pkg/config"
	"azops-hq/sweeper/pkg/patterns"
	"azops-hq/sweeper/pkg/retention"
)

// VMPolicySource supplies VM patterns and the VM retention policy.
// *config.Store implements it.
type VMPolicySource interface {
	VMPattern(name string) (config.NamingPattern, bool, error)
	NamingPatterns() (map[string]config.NamingPattern, error)
	VMCleanup() (config.VMCleanupConfig, error)
	Environment() string
}

// VMCleanupRequest describes one VM cleanup run.
type VMCleanupRequest struct {
	// PatternType names a vm_naming_patterns entry.
	PatternType string

	// DryRun overrides vm_cleanup.dry_run when set.
	DryRun *bool

	// Confirmed skips the require_confirmation gate.
	Confirmed bool

	// Trigger is recorded with the run.
	Trigger string
}

// VMAction is the outcome for one deletion candidate.
type VMAction struct {
	Name          string    `json:"name"`
	ResourceGroup string    `json:"resource_group"`
	CreatedAt     time.Time `json:"created_date"`
	Action        string    `json:"action"`
	Error         string    `json:"error,omitempty"`
}

// VMCleanupResult reports a VM cleanup run.
type VMCleanupResult struct {
	RunID            string `json:"run_id"`
	PatternType      string `json:"pattern_type"`
	DryRun           bool   `json:"dry_run"`
	TotalVMs         int    `json:"total_vms"`
	MatchingVMs      int    `json:"matching_vms"`
	VMsToDelete      int    `json:"vms_to_delete"`
	KeepLatestCount  int    `json:"kept_vms"`
	AgeThresholdDays int    `json:"age_threshold_days"`

	// Actions lists would_delete, deleted and failed candidates.
	Actions []VMAction `json:"deleted_vms"`

	// RequiresConfirmation is set when the run stopped at the confirmation
	// gate. PendingDeletions then names the VMs that would be deleted.
	RequiresConfirmation bool     `json:"requires_confirmation,omitempty"`
	PendingDeletions     []string `json:"pending_deletions,omitempty"`

	// Retention is the underlying evaluation.
	Retention *retention.Result `json:"-"`
}

// VMCleaner applies the VM retention policy to the VMs of a VMService.
type VMCleaner struct {
	source   VMPolicySource
	registry *patterns.Registry
	service  VMService
	rt       runtime
	eval     *retention.Evaluator
}

// NewVMCleaner creates a VMCleaner.
func NewVMCleaner(source VMPolicySource, registry *patterns.Registry, service VMService, opts ...Option) *VMCleaner {
	rt := newRuntime(DomainVM, opts)
	return &VMCleaner{
		source:   source,
		registry: registry,
		service:  service,
		rt:       rt,
		eval:     rt.evaluator(),
	}
}

// Cleanup runs VM retention for patternType. A nil dryRun uses the
// configured default.
func (c *VMCleaner) Cleanup(ctx context.Context, patternType string, dryRun *bool) (*VMCleanupResult, error) {
	return c.Run(ctx, VMCleanupRequest{PatternType: patternType, DryRun: dryRun, Trigger: TriggerCLI})
}

// Run executes req.
func (c *VMCleaner) Run(ctx context.Context, req VMCleanupRequest) (result *VMCleanupResult, err error) {
	ctx, rs := c.rt.begin(ctx, req.PatternType, c.source.Environment(), req.Trigger)
	outcome := OutcomeSuccess
	defer func() {
		c.rt.finish(ctx, rs, outcome, err)
	}()

	c.rt.logger.InfoContext(ctx, "starting VM cleanup", "pattern", req.PatternType)

	if _, err := c.pattern(req.PatternType); err != nil {
		return nil, err
	}

	cfg, err := c.source.VMCleanup()
	if err != nil {
		return nil, err
	}

	dryRun := resolveDryRun(req.DryRun, cfg.DryRun)
	gated := !dryRun && cfg.RequireConfirmation && !req.Confirmed
	rs.record.DryRun = dryRun || gated

	c.rt.logger.InfoContext(ctx, "cleanup config",
		"keep", cfg.KeepLatestCount,
		"age_days", cfg.AgeThresholdDays,
		"dry_run", dryRun,
		"require_confirmation", cfg.RequireConfirmation,
	)

	vms, err := c.service.ListVMs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list VMs: %w", err)
	}

	index := make(map[string]VM, len(vms))
	resources := make([]retention.Resource, 0, len(vms))
	for _, vm := range vms {
		index[vmKey(vm.ResourceGroup, vm.Name)] = vm
		resources = append(resources, retention.Resource{
			Name:      vm.Name,
			Group:     vm.ResourceGroup,
			Timestamp: vm.CreatedAt,
			Tags:      vm.Tags,
		})
	}

	policy := retention.Policy{
		PatternName:       req.PatternType,
		Matcher:           c.registry.Matcher(req.PatternType),
		KeepLatestCount:   cfg.KeepLatestCount,
		AgeThresholdDays:  cfg.AgeThresholdDays,
		ExcludedTagValues: cfg.ExcludeTags,
		MaxBatchSize:      cfg.MaxDeleteBatchSize,
		// The confirmation gate stops before any deletion.
		DryRun: dryRun || gated,
	}

	deleter := retention.DeleterFunc(func(ctx context.Context, r retention.Resource) error {
		return c.service.DeleteVM(ctx, index[vmKey(r.Group, r.Name)])
	})

	eval, err := c.eval.Evaluate(ctx, policy, resources, deleter)
	if err != nil {
		return nil, err
	}
	rs.add(eval)

	result = &VMCleanupResult{
		RunID:            rs.record.ID,
		PatternType:      req.PatternType,
		DryRun:           dryRun,
		TotalVMs:         eval.Counts.Total,
		MatchingVMs:      eval.Counts.Matched,
		VMsToDelete:      eval.Counts.Candidates,
		KeepLatestCount:  cfg.KeepLatestCount,
		AgeThresholdDays: cfg.AgeThresholdDays,
		Actions:          []VMAction{},
		Retention:        eval,
	}

	candidates := eval.Candidates()
	if gated {
		if len(candidates) > 0 {
			c.rt.logger.WarnContext(ctx, "confirmation required for VM deletion", "pending", len(candidates))
			result.RequiresConfirmation = true
			for _, d := range candidates {
				result.PendingDeletions = append(result.PendingDeletions, d.Resource.Name)
			}
		}
		outcome = outcomeOf(0, result.RequiresConfirmation)
		return result, nil
	}

	for _, d := range candidates {
		action := VMAction{
			Name:          d.Resource.Name,
			ResourceGroup: d.Resource.Group,
			CreatedAt:     d.Resource.Timestamp,
			Action:        string(d.Category),
		}
		if d.Err != nil {
			action.Error = d.Err.Error()
		}
		result.Actions = append(result.Actions, action)
	}

	outcome = outcomeOf(eval.Counts.Failed, false)
	return result, nil
}

// ListByPattern returns the VMs whose names match patternType.
func (c *VMCleaner) ListByPattern(ctx context.Context, patternType string) ([]VM, error) {
	if _, err := c.pattern(patternType); err != nil {
		return nil, err
	}

	vms, err := c.service.ListVMs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list VMs: %w", err)
	}

	match := c.registry.Matcher(patternType)
	var out []VM
	for _, vm := range vms {
		if match(vm.Name) {
			out = append(out, vm)
		}
	}

	c.rt.logger.InfoContext(ctx, "listed VMs by pattern", "pattern", patternType, "matching", len(out))
	return out, nil
}

// CheckCompliance reports which naming patterns name satisfies.
func (c *VMCleaner) CheckCompliance(name string) patterns.Compliance {
	return c.registry.Compliance(name)
}

// Patterns returns every configured VM naming pattern.
func (c *VMCleaner) Patterns() (map[string]config.NamingPattern, error) {
	return c.source.NamingPatterns()
}

func (c *VMCleaner) pattern(name string) (config.NamingPattern, error) {
	p, ok, err := c.source.VMPattern(name)
	if err != nil {
		return config.NamingPattern{}, err
	}
	if !ok {
		return config.NamingPattern{}, fmt.Errorf("%w: %s", ErrUnknownPattern, name)
	}
	return p, nil
}

func vmKey(group, name string) string {
	return group + "/" + name
}
