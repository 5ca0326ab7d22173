// Package preflight provides readiness checks for the directories, storage,
// queue, network services and converter tools fileconv depends on.
//
// The worker runs RunAll once at startup and refuses to start when a
// required check fails. The CLI "doctor" command prints the same results
// together with the per-capability tool report.
package preflight
