// Package cleanup connects configuration, naming patterns and the retention
// evaluator to the cloud services that own VMs and blobs.
//
// VMCleaner and BlobCleaner are thin call sites: they resolve a policy from
// the config Store, list resources through an injected service, hand both to
// a retention.Evaluator and shape the result for callers. Every run gets a
// run ID, a tracing span, a metrics outcome and, when a history store is
// configured, a persisted record.
//
// The two domains differ on purpose:
//
//   - VM cleanup has no minimum-keep floor and honours require_confirmation,
//     which turns a real run into a report of pending deletions.
//   - Blob cleanup combines keep_latest_count with the safety floor
//     minimum_versions_to_keep and has no confirmation gate. Each container
//     is evaluated on its own, with its own batch cap.
//
// Scheduler runs cleanups periodically from cron expressions.
package cleanup
