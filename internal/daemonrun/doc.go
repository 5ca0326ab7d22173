// Package daemonrun wires and runs a fileconv worker process.
//
// Open builds the object store, job store, queue, tool resolver, recipe
// registry and orchestrator from configuration. Run adds the process-level
// concerns: signal handling, the per-run log file and pid file, preflight
// gating and the queue consumer lifecycle. Both the `fileconv worker`
// command and the fileconvd binary go through Run.
package daemonrun
