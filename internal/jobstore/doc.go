// Package jobstore persists conversion job records as one JSON document per
// job at temp/<jobId>/job.json in the configured blob store.
//
// Records are validated against an embedded JSON schema on every load. Update
// is a read-modify-write that preserves createdAt, keeps expiresAt and outputs
// unless replaced, and refuses status regressions.
package jobstore
