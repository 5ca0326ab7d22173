package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fileconv/internal/blobstore"
	"fileconv/internal/jobstore"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "cleanup <job-id>...",
		Short: "Delete finished jobs and their files",
		Long: "Delete every object under temp/<job-id>/ for the given jobs. Jobs that\n" +
			"are still queued or processing are refused unless --force is set.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStores(func(blobs blobstore.Store, jobs *jobstore.Store) error {
				out := cmd.OutOrStdout()
				var errs []error
				for _, id := range args {
					record, err := jobs.Get(cmd.Context(), id)
					if err != nil {
						errs = append(errs, fmt.Errorf("job %s: %w", id, err))
						continue
					}
					if record == nil {
						errs = append(errs, fmt.Errorf("job %s not found", id))
						continue
					}
					if !record.Status.IsTerminal() && !force {
						errs = append(errs, fmt.Errorf("job %s is %s: pass --force to delete it anyway", id, record.Status))
						continue
					}
					removed, err := blobs.DeleteByPrefix(cmd.Context(), jobstore.Prefix(id))
					if err != nil {
						errs = append(errs, fmt.Errorf("job %s: %w", id, err))
						continue
					}
					lockPath := filepath.Join(cfg.LocksDir(), id+".lock")
					if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
						fmt.Fprintf(cmd.ErrOrStderr(), "warn: remove %s: %v\n", lockPath, err)
					}
					fmt.Fprintf(out, "Removed job %s (%d objects)\n", id, removed)
				}
				return errors.Join(errs...)
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Also delete jobs that are not completed or failed")
	return cmd
}
