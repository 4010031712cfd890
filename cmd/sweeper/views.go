package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"azops-hq/sweeper/pkg/cleanup"
	"azops-hq/sweeper/pkg/cleanup/history"
	"azops-hq/sweeper/pkg/config"
	"azops-hq/sweeper/pkg/patterns"
)

// Views adapt results to cli.Tabular. JSON and YAML output marshal the
// embedded result unchanged.

const dateLayout = "2006-01-02 15:04"

type summarizer interface {
	Summary() string
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(dateLayout)
}

func formatGB(bytes int64) string {
	return fmt.Sprintf("%.2f", float64(bytes)/(1<<30))
}

type validateRow struct {
	Document string `json:"document"`
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
}

type validateView []validateRow

func (v validateView) Header() []string { return []string{"Document", "Status", "Error"} }

func (v validateView) Rows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, r := range v {
		status := "valid"
		if !r.Valid {
			status = "invalid"
		}
		rows = append(rows, []string{r.Document, status, r.Error})
	}
	return rows
}

type vmCleanupView struct {
	*cleanup.VMCleanupResult
}

func (v vmCleanupView) Header() []string {
	return []string{"Name", "Resource Group", "Created", "Action", "Error"}
}

func (v vmCleanupView) Rows() [][]string {
	rows := make([][]string, 0, len(v.Actions))
	for _, a := range v.Actions {
		rows = append(rows, []string{a.Name, a.ResourceGroup, formatTime(a.CreatedAt), a.Action, a.Error})
	}
	return rows
}

func (v vmCleanupView) Summary() string {
	mode := "live"
	if v.DryRun {
		mode = "dry run"
	}
	s := fmt.Sprintf("Run %s (%s): %d VMs, %d match %s, %d to delete (keep latest %d, older than %d days)",
		v.RunID, mode, v.TotalVMs, v.MatchingVMs, v.PatternType, v.VMsToDelete, v.KeepLatestCount, v.AgeThresholdDays)
	if v.RequiresConfirmation {
		s += fmt.Sprintf("\n%d VMs pending deletion; re-run with --confirm to delete them", len(v.PendingDeletions))
	}
	return s
}

// vmRow is a listed VM with the version parsed from its name, when the
// pattern carries one.
type vmRow struct {
	cleanup.VM
	Version string `json:"version,omitempty"`
}

type vmListView []vmRow

func newVMListView(vms []cleanup.VM, registry *patterns.Registry, patternType string) vmListView {
	view := make(vmListView, 0, len(vms))
	for _, vm := range vms {
		version, _ := registry.ExtractVersion(vm.Name, patternType)
		view = append(view, vmRow{VM: vm, Version: version})
	}
	return view
}

func (v vmListView) Header() []string {
	return []string{"Name", "Version", "Resource Group", "Created", "Size", "Provisioning State"}
}

func (v vmListView) Rows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, vm := range v {
		rows = append(rows, []string{vm.Name, vm.Version, vm.ResourceGroup, formatTime(vm.CreatedAt), vm.Size, vm.ProvisioningState})
	}
	return rows
}

type complianceView struct {
	patterns.Compliance
}

func (v complianceView) Header() []string { return []string{"VM", "Compliant", "Matching Patterns"} }

func (v complianceView) Rows() [][]string {
	return [][]string{{v.Name, strconv.FormatBool(v.Compliant), strings.Join(v.MatchingPatterns, ", ")}}
}

type patternRow struct {
	Name        string `json:"name"`
	Pattern     string `json:"pattern"`
	Regex       string `json:"regex"`
	Description string `json:"description,omitempty"`
}

type patternsView []patternRow

func newPatternsView(m map[string]config.NamingPattern) patternsView {
	view := make(patternsView, 0, len(m))
	for name, p := range m {
		view = append(view, patternRow{Name: name, Pattern: p.Pattern, Regex: p.Regex, Description: p.Description})
	}
	sort.Slice(view, func(i, j int) bool { return view[i].Name < view[j].Name })
	return view
}

func (v patternsView) Header() []string { return []string{"Name", "Pattern", "Regex", "Description"} }

func (v patternsView) Rows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, p := range v {
		rows = append(rows, []string{p.Name, p.Pattern, p.Regex, p.Description})
	}
	return rows
}

type blobCleanupView struct {
	*cleanup.BlobCleanupResult
}

func (v blobCleanupView) Header() []string {
	return []string{"Container", "Blob", "Size MB", "Last Modified", "Action", "Error"}
}

func (v blobCleanupView) Rows() [][]string {
	rows := make([][]string, 0, len(v.Actions))
	for _, a := range v.Actions {
		rows = append(rows, []string{
			a.Container, a.Name, fmt.Sprintf("%.2f", a.SizeMB), formatTime(a.LastModified), a.Action, a.Error,
		})
	}
	return rows
}

func (v blobCleanupView) Summary() string {
	mode := "live"
	if v.DryRun {
		mode = "dry run"
	}
	s := fmt.Sprintf("Run %s (%s): %d containers, %d blobs, %d deleted, %d failed, %d deferred, %.2f GB freed",
		v.RunID, mode, v.ContainersProcessed, v.TotalBlobs, v.BlobsDeleted, v.BlobsFailed, v.BlobsDeferred, v.SpaceFreedGB)
	for _, c := range v.Containers {
		if c.Error != "" {
			s += fmt.Sprintf("\ncontainer %s skipped: %s", c.Container, c.Error)
		}
	}
	return s
}

type usageView struct {
	*cleanup.UsageReport
}

func (v usageView) Header() []string { return []string{"Container", "Blobs", "Size GB"} }

func (v usageView) Rows() [][]string {
	rows := make([][]string, 0, len(v.Containers))
	for _, c := range v.Containers {
		rows = append(rows, []string{c.Container, strconv.Itoa(c.BlobCount), fmt.Sprintf("%.2f", c.SizeGB)})
	}
	return rows
}

func (v usageView) Summary() string {
	return fmt.Sprintf("%s: %d blobs, %.2f GB", v.ArtifactType, v.TotalBlobs, v.TotalGB)
}

type policyRow struct {
	ArtifactType     string   `json:"artifact_type"`
	KeepLatestCount  int      `json:"keep_latest_count"`
	AgeThresholdDays int      `json:"age_threshold_days"`
	Pattern          string   `json:"pattern"`
	SizeLimitGB      float64  `json:"size_limit_gb,omitempty"`
	Containers       []string `json:"containers,omitempty"`
	StorageAccount   string   `json:"storage_account,omitempty"`
}

type policiesView []policyRow

func newPoliciesView(policies []config.BlobRetentionPolicy) policiesView {
	view := make(policiesView, 0, len(policies))
	for _, p := range policies {
		view = append(view, policyRow{
			ArtifactType:     p.Name,
			KeepLatestCount:  p.KeepLatestCount,
			AgeThresholdDays: p.AgeThresholdDays,
			Pattern:          p.Pattern,
			SizeLimitGB:      p.SizeLimitGB,
			Containers:       p.Containers,
			StorageAccount:   p.StorageAccount,
		})
	}
	return view
}

func (v policiesView) Header() []string {
	return []string{"Artifact Type", "Keep", "Age Days", "Pattern", "Containers", "Account"}
}

func (v policiesView) Rows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, p := range v {
		rows = append(rows, []string{
			p.ArtifactType,
			strconv.Itoa(p.KeepLatestCount),
			strconv.Itoa(p.AgeThresholdDays),
			p.Pattern,
			strings.Join(p.Containers, ", "),
			p.StorageAccount,
		})
	}
	return rows
}

type flagView struct {
	Name        string `json:"name"`
	Environment string `json:"environment"`
	Enabled     bool   `json:"enabled"`
}

func (v flagView) Header() []string { return []string{"Flag", "Environment", "Enabled"} }

func (v flagView) Rows() [][]string {
	return [][]string{{v.Name, v.Environment, strconv.FormatBool(v.Enabled)}}
}

type historyView []history.Run

func (v historyView) Header() []string {
	return []string{"ID", "Domain", "Target", "Outcome", "Dry Run", "Started", "Duration", "Deleted", "Failed", "Freed GB"}
}

func (v historyView) Rows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, r := range v {
		rows = append(rows, []string{
			r.ID,
			r.Domain,
			r.Target,
			r.Outcome,
			strconv.FormatBool(r.DryRun),
			formatTime(r.StartedAt),
			r.Duration().Round(time.Millisecond).String(),
			strconv.Itoa(r.Deleted),
			strconv.Itoa(r.Failed),
			formatGB(r.BytesReclaimed),
		})
	}
	return rows
}

type runView struct {
	history.Run
}

func (v runView) Header() []string { return []string{"Property", "Value"} }

func (v runView) Rows() [][]string {
	rows := [][]string{
		{"ID", v.ID},
		{"Domain", v.Domain},
		{"Target", v.Target},
		{"Environment", v.Environment},
		{"Trigger", v.Trigger},
		{"Dry Run", strconv.FormatBool(v.DryRun)},
		{"Outcome", v.Outcome},
		{"Started", formatTime(v.StartedAt)},
		{"Finished", formatTime(v.FinishedAt)},
		{"Matched", strconv.Itoa(v.Matched)},
		{"Candidates", strconv.Itoa(v.Candidates)},
		{"Deleted", strconv.Itoa(v.Deleted)},
		{"Failed", strconv.Itoa(v.Failed)},
		{"Deferred", strconv.Itoa(v.Deferred)},
		{"Freed GB", formatGB(v.BytesReclaimed)},
	}
	if v.Error != "" {
		rows = append(rows, []string{"Error", v.Error})
	}
	return rows
}
