// Package retention decides which resources a retention policy deletes.
//
// The Evaluator is domain-agnostic: callers hand it a Policy and a snapshot
// of Resources (VMs, blobs, objects) and get back one Decision per resource
// that matched the policy's pattern. Evaluation is a fixed pipeline:
//
//  1. drop resources the policy's Matcher rejects (no decision at all)
//  2. mark resources carrying an excluded tag value as excluded_tag
//  3. sort the rest newest first (stable)
//  4. keep the first max(keep_latest_count, minimum_versions_to_keep)
//  5. keep anything not strictly older than the age threshold
//  6. take the remaining resources as candidates up to the batch cap,
//     deferring the rest to a later run
//  7. report candidates as would_delete (dry run) or delete them one by one
//
// Deletion is best effort: a failure is recorded on that resource's Decision
// and the batch continues.
package retention
