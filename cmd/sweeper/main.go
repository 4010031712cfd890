// Sweeper applies retention policies to CI build VMs and build artifact blobs.
//
// Policies, naming patterns and feature flags live in YAML documents under a
// configuration directory (or a git repository) with per-environment
// overlays. Every cleanup is a dry run unless the policy or --dry-run=false
// says otherwise, and VM deletions wait for --confirm when the policy
// requires confirmation.
//
// Usage:
//
//	# Validate every configuration document
//	sweeper validate --config-dir ./configs
//
//	# Preview VM cleanup for one naming pattern
//	sweeper vm cleanup ci_templates --dry-run
//
//	# Delete expired artifacts of one type
//	sweeper blob cleanup build_artifacts --dry-run=false
//
//	# Run scheduled cleanups and serve metrics
//	sweeper serve --metrics-addr :9090 --history-db /var/lib/sweeper/history.db
//
//	# Show recent runs
//	sweeper history --domain vm
package main

func main() {
	Execute()
}
