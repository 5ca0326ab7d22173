// Package main hosts the fileconv CLI entrypoint and command graph.
//
// The Cobra command tree covers the worker process, job submission and
// inspection, the recipe catalogue, environment diagnostics, job cleanup and
// configuration scaffolding. Configuration is resolved once per invocation by
// commandContext; commands that only scaffold configuration opt out through
// the skipConfigLoad annotation.
//
// Keep this package thin: behavior belongs in the internal packages and is
// surfaced here through flags and rendering only.
package main
