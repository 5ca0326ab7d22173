package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"fileconv/internal/blobstore"
	"fileconv/internal/config"
	"fileconv/internal/daemonrun"
	"fileconv/internal/fileutil"
	"fileconv/internal/jobstore"
	"fileconv/internal/queue"
	"fileconv/internal/recipes"
	"fileconv/internal/services"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var jobID string
	var runInline bool
	var verbose bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "enqueue <converter> <file>...",
		Short: "Upload files and submit a conversion job",
		Long: "Upload the given files under a new job id, create the job record and\n" +
			"push the id onto the queue. With --run the job is processed in this\n" +
			"process instead, which is the only option for the memory queue.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !runInline && cfg.Queue.Backend == config.QueueMemory {
				return fmt.Errorf("the memory queue is local to one process: pass --run or set queue.backend = %q", config.QueueRedis)
			}
			logger, err := ctx.commandLogger(verbose)
			if err != nil {
				return err
			}

			id := strings.TrimSpace(jobID)
			if id == "" {
				id = uuid.NewString()
			}

			svc, err := daemonrun.Open(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			record, err := submitJob(cmd.Context(), svc.Blobs, svc.Jobs, svc.Registry, id, args[0], args[1:])
			if err != nil {
				return err
			}

			if runInline {
				if err := svc.Orchestrator.Run(cmd.Context(), id); err != nil {
					return fmt.Errorf("run job %s: %w", id, err)
				}
				record, err = svc.Jobs.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
			} else if err := svc.Queue.Enqueue(cmd.Context(), queue.Message{JobID: id}); err != nil {
				return fmt.Errorf("enqueue job %s: %w", id, err)
			}

			if jsonOutput {
				return writeJSON(cmd, newJobView(record))
			}
			out := cmd.OutOrStdout()
			if !runInline {
				fmt.Fprintln(out, id)
				return nil
			}
			fmt.Fprint(out, renderJob(record, colorEnabled(out)))
			if record.Status == jobstore.StatusFailed {
				return fmt.Errorf("job %s failed: %s", id, record.ErrorMessage())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "id", "", "Job id to use instead of a generated UUID")
	cmd.Flags().BoolVar(&runInline, "run", false, "Process the job in this process and wait for the result")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of warnings only")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the job record as JSON")
	return cmd
}

// submitJob validates the request against the recipe, uploads every file
// under temp/<id>/uploads/ and creates the queued record. Uploads are removed
// again when any step fails.
func submitJob(ctx context.Context, blobs blobstore.Store, jobs *jobstore.Store, registry *recipes.Registry, id, slug string, paths []string) (*jobstore.Record, error) {
	recipe, ok := registry.Lookup(slug)
	if !ok {
		return nil, fmt.Errorf("unsupported converter %q: run `fileconv recipes` for the list", slug)
	}
	if err := recipe.CheckInputCount(len(paths)); err != nil {
		return nil, fmt.Errorf("%s", services.FailureMessage(err))
	}
	if strings.ContainsAny(id, `/\ `) || strings.HasPrefix(id, ".") {
		return nil, fmt.Errorf("invalid job id %q", id)
	}
	existing, err := jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("job %s already exists", id)
	}

	inputs, err := uploadInputs(ctx, blobs, recipe, id, paths)
	if err != nil {
		_, _ = blobs.DeleteByPrefix(ctx, jobstore.Prefix(id))
		return nil, err
	}
	record, err := jobs.Create(ctx, jobstore.Record{ID: id, ConverterSlug: recipe.Slug, Inputs: inputs})
	if err != nil {
		_, _ = blobs.DeleteByPrefix(ctx, jobstore.Prefix(id))
		return nil, err
	}
	return record, nil
}

func uploadInputs(ctx context.Context, blobs blobstore.Store, recipe recipes.Recipe, id string, paths []string) ([]jobstore.Input, error) {
	inputs := make([]jobstore.Input, 0, len(paths))
	seen := make(map[string]int, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%s is not a regular file", path)
		}

		name := fileutil.SanitizeFileName(filepath.Base(path))
		base, ext := fileutil.SplitExt(name)
		contentType := recipes.MIMEByExtension(ext)
		if !recipe.Accepts(name, contentType) {
			return nil, fmt.Errorf("%s cannot take %s: accepted extensions are %s",
				recipe.Pair(), filepath.Base(path), strings.Join(recipe.Accept.Extensions, ", "))
		}

		// Keys must be unique even when two paths share a base name.
		stored := name
		if n := seen[strings.ToLower(name)]; n > 0 {
			stored = base + "-" + strconv.Itoa(n+1)
			if ext != "" {
				stored += "." + ext
			}
		}
		seen[strings.ToLower(name)]++

		key := jobstore.UploadsPrefix(id) + stored
		if err := blobstore.Upload(ctx, blobs, key, path, contentType); err != nil {
			return nil, err
		}
		inputs = append(inputs, jobstore.Input{Key: key, Filename: name, ContentType: contentType})
	}
	return inputs, nil
}
