package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fileconv/internal/services"
)

// Workspace is the scratch area of one job run.
type Workspace struct {
	Root      string
	InputDir  string
	OutputDir string

	once sync.Once
	err  error
}

// Acquire creates <root>/<jobID>-<random>/{input,output}. The random suffix
// keeps a redelivered job from colliding with a stale directory left by a
// crashed worker.
func Acquire(root, jobID string) (*Workspace, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" || strings.ContainsAny(jobID, `/\`) || jobID == "." || jobID == ".." {
		return nil, services.Wrap(services.ErrValidation, "workspace", "acquire", fmt.Sprintf("invalid job id %q", jobID), nil)
	}
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorage, "workspace", "acquire", "create work root", err)
	}
	dir, err := os.MkdirTemp(root, jobID+"-")
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "workspace", "acquire", "create job directory", err)
	}

	ws := &Workspace{
		Root:      dir,
		InputDir:  filepath.Join(dir, "input"),
		OutputDir: filepath.Join(dir, "output"),
	}
	for _, sub := range []string{ws.InputDir, ws.OutputDir} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			_ = os.RemoveAll(dir)
			return nil, services.Wrap(services.ErrStorage, "workspace", "acquire", "create "+filepath.Base(sub)+" directory", err)
		}
	}
	return ws, nil
}

// Release removes the workspace recursively. It is safe to call more than
// once and on a nil workspace; only the first call does any work.
func (w *Workspace) Release() error {
	if w == nil {
		return nil
	}
	w.once.Do(func() {
		if err := os.RemoveAll(w.Root); err != nil && !errors.Is(err, os.ErrNotExist) {
			w.err = fmt.Errorf("remove workspace %s: %w", w.Root, err)
		}
	})
	return w.err
}

// InputPath returns the local path for a downloaded input.
func (w *Workspace) InputPath(name string) string {
	return filepath.Join(w.InputDir, filepath.Base(name))
}
