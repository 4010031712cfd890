// Package logging builds the process-wide slog logger.
//
// # Overview
//
// New returns a *slog.Logger whose handler:
//   - writes JSON or text to the configured writer
//   - redacts cloud credentials (SAS signatures, storage account keys,
//     bearer tokens, AWS secret keys) from messages and attribute values
//   - adds run_id, domain and environment from the context when logging
//     through the *Context methods
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json", Redact: true})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRunID(ctx, runID)
//	logger.InfoContext(ctx, "cleanup started", "pattern", "ci_templates")
//
// Components derive their own logger with a component attribute:
//
//	logger := slog.Default().With("component", "cleanup.vm")
package logging
