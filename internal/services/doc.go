// Package services defines shared utilities consumed by the pipeline, the
// conversion handlers, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, recipe slugs, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (not found, unsupported converter, tool unavailable, tool failed,
//     timeout, validation, storage) and carry the message persisted on
//     failed jobs.
package services
