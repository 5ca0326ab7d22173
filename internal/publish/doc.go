// Package publish uploads finished artifacts and records them on the job.
//
// An artifact is visible in the job record only after its bytes are stored,
// so a reader never sees an output entry whose key is missing.
package publish
