// Package pipeline runs one conversion job from queued to a terminal state.
//
// Run loads the job record, validates the converter and input count, stages
// the uploads in a private workspace, invokes the converter handlers and
// publishes every artifact before marking the job completed. Any failure is
// stored on the record as a user-facing message. A per-job file lock keeps
// two workers on the same host from running a redelivered job twice.
package pipeline
