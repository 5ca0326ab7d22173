package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"fileconv/internal/blobstore"
	"fileconv/internal/config"
	"fileconv/internal/deps"
	"fileconv/internal/language"
	"fileconv/internal/logging"
	"fileconv/internal/queue"
	"fileconv/internal/translate"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskFree verifies that the filesystem holding path has at least
// minMiB mebibytes available. A zero minimum only reports the free space.
func CheckDiskFree(name, path string, minMiB uint64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := st.Bavail * uint64(st.Bsize) / (1 << 20)
	if free < minMiB {
		return Result{Name: name, Detail: fmt.Sprintf("%d MiB free, need %d MiB", free, minMiB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d MiB free", free)}
}

// CheckStorage opens the configured object store and lists the job namespace.
func CheckStorage(ctx context.Context, cfg *config.Config) Result {
	name := "Object storage (" + cfg.Storage.Backend + ")"
	store, err := blobstore.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer store.Close()
	objects, err := store.List(ctx, "temp/")
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d objects under temp/", len(objects))}
}

// CheckQueue connects to the configured queue and reads its depth.
func CheckQueue(ctx context.Context, cfg *config.Config) Result {
	name := "Queue (" + cfg.Queue.Backend + ")"
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	q, err := queue.Open(checkCtx, cfg, logging.NewNop())
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer q.Close()
	stats, err := q.Stats(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d pending, %d in flight", stats.Pending, stats.InFlight)}
}

// CheckTranslate lists the languages offered by the translation service and
// confirms the configured target is among them.
func CheckTranslate(ctx context.Context, cfg *config.Config) Result {
	const name = "Translation service"
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := translate.NewClient(translate.Config{
		URL:            cfg.Translate.URL,
		APIKey:         cfg.Translate.APIKey,
		TimeoutSeconds: cfg.Translate.TimeoutSeconds,
	})
	languages, err := client.Languages(checkCtx)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: summarizeNetError(err)}
	}
	target := language.Translation(cfg.Translate.TargetLanguage)
	if target == "" {
		target = strings.ToLower(strings.TrimSpace(cfg.Translate.TargetLanguage))
	}
	for _, lang := range languages {
		if strings.EqualFold(lang.Code, target) {
			return Result{Name: name, Optional: true, Passed: true,
				Detail: fmt.Sprintf("%d languages, target %s (%s) available", len(languages), language.DisplayName(target), target)}
		}
	}
	return Result{Name: name, Optional: true, Detail: fmt.Sprintf("target language %q not offered", target)}
}

// CheckEndpoint verifies that baseURL answers HTTP at all.
func CheckEndpoint(ctx context.Context, name, baseURL string) Result {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/", nil)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: err.Error()}
	}
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: summarizeNetError(err)}
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Optional: true, Passed: true, Detail: "Reachable"}
}

// CheckToolsOnPath reports which candidate binaries exist without running
// version probes.
func CheckToolsOnPath(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(deps.OverridesFromConfig(cfg)))
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (service unreachable)"
	}
	return err.Error()
}
