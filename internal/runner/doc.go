// Package runner executes external conversion tools with a wall-clock
// ceiling. A command that outlives the ceiling is killed together with its
// process group and reported as services.ErrTimeout; a non-zero exit becomes
// services.ErrToolFailed carrying the tail of stderr.
package runner
