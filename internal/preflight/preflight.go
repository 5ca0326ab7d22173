package preflight

import (
	"context"

	"fileconv/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional checks warn without blocking startup.
	Optional bool
}

// RunAll executes the environment checks for cfg. Tool availability is
// reported separately by deps.Report.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDiskFree("Work disk space", cfg.Paths.WorkDir, uint64(cfg.Worker.MinFreeDiskMiB)),
		CheckStorage(ctx, cfg),
		CheckQueue(ctx, cfg),
	}
	if cfg.Storage.Backend == config.StorageFS {
		results = append(results, CheckDirectoryAccess("Object storage", cfg.Storage.Root))
	}
	if cfg.Translate.URL != "" {
		results = append(results, CheckTranslate(ctx, cfg))
	}
	if cfg.OCR.CloudURL != "" {
		results = append(results, CheckEndpoint(ctx, "Cloud OCR", cfg.OCR.CloudURL))
	}
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}
