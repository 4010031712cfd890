package cleanup

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"azops-hq/sweeper/pkg/config"
	"azops-hq/sweeper/pkg/retention"
)

const bytesPerGB = 1024 * 1024 * 1024

// BlobPolicySource supplies blob retention policies, storage accounts and
// safety limits. *config.Store implements it.
type BlobPolicySource interface {
	BlobRetention(artifactType string) (config.BlobRetentionPolicy, bool, error)
	BlobRetentionPolicies() ([]config.BlobRetentionPolicy, error)
	StorageAccount(name string) (config.StorageAccount, bool, error)
	Safety() (config.SafetyConfig, error)
	Environment() string
}

// BlobCleanupRequest describes one blob cleanup run.
type BlobCleanupRequest struct {
	ArtifactType string

	// StorageAccount overrides the policy's account.
	StorageAccount string

	// DryRun overrides safety.dry_run when set.
	DryRun *bool

	Trigger string
}

// BlobAction is the outcome for one deletion candidate.
type BlobAction struct {
	Name         string    `json:"name"`
	Container    string    `json:"container"`
	SizeBytes    int64     `json:"size_bytes"`
	SizeMB       float64   `json:"size_mb"`
	LastModified time.Time `json:"last_modified"`
	Action       string    `json:"action"`
	Error        string    `json:"error,omitempty"`
}

// ContainerResult is the evaluation of one container.
type ContainerResult struct {
	Container string           `json:"container"`
	Counts    retention.Counts `json:"counts"`

	// Error is set when the container could not be listed.
	Error string `json:"error,omitempty"`

	Retention *retention.Result `json:"-"`
}

// BlobCleanupResult reports a blob cleanup run.
type BlobCleanupResult struct {
	RunID               string  `json:"run_id"`
	ArtifactType        string  `json:"artifact_type"`
	StorageAccount      string  `json:"storage_account"`
	DryRun              bool    `json:"dry_run"`
	ContainersProcessed int     `json:"containers_processed"`
	TotalBlobs          int     `json:"total_blobs"`
	BlobsDeleted        int     `json:"blobs_deleted"`
	BlobsFailed         int     `json:"blobs_failed"`
	BlobsDeferred       int     `json:"blobs_deferred"`
	BytesFreed          int64   `json:"bytes_freed"`
	SpaceFreedGB        float64 `json:"space_freed_gb"`

	// Actions lists would_delete, deleted and failed candidates of every container.
	Actions []BlobAction `json:"deleted_blobs"`

	Containers []ContainerResult `json:"containers"`
}

// ContainerUsage summarizes one container.
type ContainerUsage struct {
	Container string  `json:"container"`
	BlobCount int     `json:"blob_count"`
	SizeBytes int64   `json:"size_bytes"`
	SizeGB    float64 `json:"size_gb"`
}

// UsageReport summarizes the containers of an artifact type.
type UsageReport struct {
	ArtifactType string           `json:"artifact_type"`
	Containers   []ContainerUsage `json:"containers"`
	TotalBlobs   int              `json:"total_blobs"`
	TotalBytes   int64            `json:"total_bytes"`
	TotalGB      float64          `json:"total_size_gb"`
}

// BlobCleaner applies blob retention policies container by container.
type BlobCleaner struct {
	source   BlobPolicySource
	services BlobServiceFactory
	rt       runtime
	eval     *retention.Evaluator
}

// NewBlobCleaner creates a BlobCleaner. services resolves the BlobService of
// each storage account.
func NewBlobCleaner(source BlobPolicySource, services BlobServiceFactory, opts ...Option) *BlobCleaner {
	rt := newRuntime(DomainBlob, opts)
	return &BlobCleaner{
		source:   source,
		services: services,
		rt:       rt,
		eval:     rt.evaluator(),
	}
}

// Cleanup runs blob retention for artifactType. An empty account uses the
// policy's storage account. A nil dryRun uses safety.dry_run.
func (c *BlobCleaner) Cleanup(ctx context.Context, artifactType, account string, dryRun *bool) (*BlobCleanupResult, error) {
	return c.Run(ctx, BlobCleanupRequest{
		ArtifactType:   artifactType,
		StorageAccount: account,
		DryRun:         dryRun,
		Trigger:        TriggerCLI,
	})
}

// Run executes req. Containers are processed one after another; a container
// that cannot be listed is reported and the run continues.
func (c *BlobCleaner) Run(ctx context.Context, req BlobCleanupRequest) (result *BlobCleanupResult, err error) {
	ctx, rs := c.rt.begin(ctx, req.ArtifactType, c.source.Environment(), req.Trigger)
	outcome := OutcomeSuccess
	defer func() {
		c.rt.finish(ctx, rs, outcome, err)
	}()

	c.rt.logger.InfoContext(ctx, "starting blob cleanup", "artifact_type", req.ArtifactType)

	policy, err := c.policy(req.ArtifactType)
	if err != nil {
		return nil, err
	}
	safety, err := c.source.Safety()
	if err != nil {
		return nil, err
	}
	account, err := c.account(req.StorageAccount, policy)
	if err != nil {
		return nil, err
	}
	containers := containersFor(policy, account)
	if len(containers) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoContainers, req.ArtifactType)
	}
	matcher, prefix, err := globMatcher(policy.Pattern)
	if err != nil {
		return nil, err
	}

	svc, err := c.services(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("blob service for account %q: %w", account.Name, err)
	}

	dryRun := resolveDryRun(req.DryRun, safety.DryRun)
	rs.record.DryRun = dryRun
	floor := safety.MinimumVersionsToKeep

	retentionPolicy := retention.Policy{
		PatternName:           req.ArtifactType,
		Matcher:               matcher,
		KeepLatestCount:       policy.KeepLatestCount,
		AgeThresholdDays:      policy.AgeThresholdDays,
		ExcludedTagValues:     safety.ExcludeTags,
		MinimumVersionsToKeep: &floor,
		MaxBatchSize:          safety.MaxDeleteBatchSize,
		DryRun:                dryRun,
	}

	result = &BlobCleanupResult{
		RunID:          rs.record.ID,
		ArtifactType:   req.ArtifactType,
		StorageAccount: account.Name,
		DryRun:         dryRun,
		Actions:        []BlobAction{},
	}

	c.rt.logger.InfoContext(ctx, "retention policy resolved",
		"keep", policy.KeepLatestCount,
		"min_versions", floor,
		"age_days", policy.AgeThresholdDays,
		"pattern", policy.Pattern,
		"containers", len(containers),
		"dry_run", dryRun,
	)

	listErrors := 0
	for _, container := range containers {
		cr := ContainerResult{Container: container}

		eval, err := c.cleanContainer(ctx, svc, container, prefix, retentionPolicy)
		if err != nil {
			c.rt.logger.ErrorContext(ctx, "container cleanup failed", "container", container, "error", err)
			cr.Error = err.Error()
			listErrors++
			result.Containers = append(result.Containers, cr)
			continue
		}
		rs.add(eval)

		cr.Counts = eval.Counts
		cr.Retention = eval
		result.Containers = append(result.Containers, cr)

		result.ContainersProcessed++
		result.TotalBlobs += eval.Counts.Total
		result.BlobsDeferred += eval.Counts.Deferred
		result.BytesFreed += eval.BytesReclaimed()

		for _, d := range eval.Candidates() {
			action := BlobAction{
				Name:         d.Resource.Name,
				Container:    d.Resource.Group,
				SizeBytes:    d.Resource.SizeBytes,
				SizeMB:       float64(d.Resource.SizeBytes) / (1024 * 1024),
				LastModified: d.Resource.Timestamp,
				Action:       string(d.Category),
			}
			if d.Err != nil {
				action.Error = d.Err.Error()
				result.BlobsFailed++
			} else {
				result.BlobsDeleted++
			}
			result.Actions = append(result.Actions, action)
		}
	}
	result.SpaceFreedGB = float64(result.BytesFreed) / bytesPerGB

	outcome = outcomeOf(result.BlobsFailed+listErrors, false)
	return result, nil
}

func (c *BlobCleaner) cleanContainer(ctx context.Context, svc BlobService, container, prefix string, policy retention.Policy) (*retention.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blobs, err := svc.ListBlobs(ctx, container, prefix)
	if err != nil {
		return nil, fmt.Errorf("list blobs in %s: %w", container, err)
	}

	resources := make([]retention.Resource, 0, len(blobs))
	for _, b := range blobs {
		resources = append(resources, retention.Resource{
			Name:      b.Name,
			Group:     container,
			Timestamp: b.LastModified,
			Tags:      b.Tags,
			SizeBytes: b.Size,
		})
	}

	deleter := retention.DeleterFunc(func(ctx context.Context, r retention.Resource) error {
		return svc.DeleteBlob(ctx, r.Group, r.Name)
	})
	return c.eval.Evaluate(ctx, policy, resources, deleter)
}

// Usage reports blob counts and sizes for the containers of artifactType.
func (c *BlobCleaner) Usage(ctx context.Context, artifactType string) (*UsageReport, error) {
	policy, err := c.policy(artifactType)
	if err != nil {
		return nil, err
	}
	account, err := c.account("", policy)
	if err != nil {
		return nil, err
	}
	containers := containersFor(policy, account)
	if len(containers) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoContainers, artifactType)
	}

	svc, err := c.services(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("blob service for account %q: %w", account.Name, err)
	}

	report := &UsageReport{ArtifactType: artifactType}
	for _, container := range containers {
		blobs, err := svc.ListBlobs(ctx, container, "")
		if err != nil {
			return nil, fmt.Errorf("list blobs in %s: %w", container, err)
		}

		usage := ContainerUsage{Container: container, BlobCount: len(blobs)}
		for _, b := range blobs {
			usage.SizeBytes += b.Size
		}
		usage.SizeGB = float64(usage.SizeBytes) / bytesPerGB

		report.Containers = append(report.Containers, usage)
		report.TotalBlobs += usage.BlobCount
		report.TotalBytes += usage.SizeBytes
	}
	report.TotalGB = float64(report.TotalBytes) / bytesPerGB
	return report, nil
}

// RetentionPolicies returns every configured blob retention policy.
func (c *BlobCleaner) RetentionPolicies() ([]config.BlobRetentionPolicy, error) {
	return c.source.BlobRetentionPolicies()
}

func (c *BlobCleaner) policy(artifactType string) (config.BlobRetentionPolicy, error) {
	p, ok, err := c.source.BlobRetention(artifactType)
	if err != nil {
		return config.BlobRetentionPolicy{}, err
	}
	if !ok {
		return config.BlobRetentionPolicy{}, fmt.Errorf("%w: %s", ErrUnknownArtifactType, artifactType)
	}
	return p, nil
}

// account resolves the storage account: the explicit name, then the
// policy's account, then the first configured one. With no accounts
// configured at all an unnamed default-provider account is returned.
func (c *BlobCleaner) account(name string, policy config.BlobRetentionPolicy) (config.StorageAccount, error) {
	if name == "" {
		name = policy.StorageAccount
	}
	account, ok, err := c.source.StorageAccount(name)
	if err != nil {
		return config.StorageAccount{}, err
	}
	if ok {
		return account, nil
	}
	if name != "" {
		return config.StorageAccount{}, fmt.Errorf("%w: %s", ErrUnknownStorageAccount, name)
	}
	return config.StorageAccount{Provider: config.DefaultStorageProvider}, nil
}

func containersFor(policy config.BlobRetentionPolicy, account config.StorageAccount) []string {
	if len(policy.Containers) > 0 {
		return policy.Containers
	}
	return account.Containers
}

// globMatcher compiles a blob name glob. A pattern without "/" is matched
// against the last path element of the name, so "*.zip" also selects
// "2026/build.zip". prefix is the literal part of a "/" pattern before its
// first wildcard and narrows listing on the server side.
func globMatcher(pattern string) (retention.Matcher, string, error) {
	if pattern == "" {
		pattern = config.DefaultBlobPattern
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, "", fmt.Errorf("invalid blob pattern %q: %w", pattern, err)
	}

	if !strings.Contains(pattern, "/") {
		match := func(name string) bool {
			ok, _ := path.Match(pattern, path.Base(name))
			return ok
		}
		return match, "", nil
	}

	prefix := pattern
	if i := strings.IndexAny(pattern, `*?[\`); i >= 0 {
		prefix = pattern[:i]
	}
	match := func(name string) bool {
		ok, _ := path.Match(pattern, name)
		return ok
	}
	return match, prefix, nil
}
