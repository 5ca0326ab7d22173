package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fileconv/internal/blobstore"
	"fileconv/internal/config"
	"fileconv/internal/fileutil"
	"fileconv/internal/jobstore"
	"fileconv/internal/logging"
	"fileconv/internal/queue"
)

type jobView struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Converter string            `json:"converterSlug"`
	Inputs    []string          `json:"inputs"`
	Outputs   []jobstore.Output `json:"outputs"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

func newJobView(r *jobstore.Record) jobView {
	view := jobView{
		ID:        r.ID,
		Status:    string(r.Status),
		Converter: r.ConverterSlug,
		Inputs:    make([]string, 0, len(r.Inputs)),
		Outputs:   r.Outputs,
		Error:     r.ErrorMessage(),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		ExpiresAt: r.ExpiresAt,
	}
	for _, in := range r.Inputs {
		view.Inputs = append(view.Inputs, in.Filename)
	}
	return view
}

func renderJob(r *jobstore.Record, color bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job:       %s\n", r.ID)
	fmt.Fprintf(&b, "Converter: %s\n", r.ConverterSlug)
	fmt.Fprintf(&b, "Status:    %s\n", statusLabel(string(r.Status), color))
	if msg := r.ErrorMessage(); msg != "" {
		fmt.Fprintf(&b, "Error:     %s\n", msg)
	}
	fmt.Fprintf(&b, "Created:   %s\n", r.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(&b, "Expires:   %s\n", r.ExpiresAt.Local().Format(time.DateTime))

	rows := make([][]string, 0, len(r.Inputs)+len(r.Outputs))
	for _, in := range r.Inputs {
		rows = append(rows, []string{"input", in.Filename, in.Key})
	}
	for _, out := range r.Outputs {
		rows = append(rows, []string{"output", out.Filename, out.Key})
	}
	if len(rows) > 0 {
		b.WriteString(renderTable([]string{"Kind", "File", "Key"}, rows, nil))
		b.WriteString("\n")
	}
	return b.String()
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var downloadDir string

	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show a job record, or queue depth when no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return showQueueStatus(cmd, ctx, jsonOutput)
			}
			return ctx.withStores(func(blobs blobstore.Store, jobs *jobstore.Store) error {
				record, err := jobs.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("job %s not found", args[0])
				}

				if downloadDir != "" {
					written, err := downloadOutputs(cmd, blobs, record, downloadDir)
					if err != nil {
						return err
					}
					if !jsonOutput {
						for _, path := range written {
							fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
						}
					}
				}

				if jsonOutput {
					return writeJSON(cmd, newJobView(record))
				}
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderJob(record, colorEnabled(out)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table")
	cmd.Flags().StringVarP(&downloadDir, "download", "d", "", "Copy the job's artifacts into this directory")
	return cmd
}

func downloadOutputs(cmd *cobra.Command, blobs blobstore.Store, record *jobstore.Record, dir string) ([]string, error) {
	if len(record.Outputs) == 0 {
		return nil, fmt.Errorf("job %s has no artifacts (status %s)", record.ID, record.Status)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}
	written := make([]string, 0, len(record.Outputs))
	for _, out := range record.Outputs {
		dest := filepath.Join(dir, fileutil.SanitizeFileName(out.Filename))
		if _, err := blobstore.Download(cmd.Context(), blobs, out.Key, dest); err != nil {
			return written, err
		}
		written = append(written, dest)
	}
	return written, nil
}

func showQueueStatus(cmd *cobra.Command, ctx *commandContext, jsonOutput bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if cfg.Queue.Backend == config.QueueMemory {
		return fmt.Errorf("the memory queue is local to one process: pass a job id")
	}
	q, err := queue.Open(cmd.Context(), cfg, logging.NewNop())
	if err != nil {
		return err
	}
	defer q.Close()
	stats, err := q.Stats(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd, map[string]any{
			"queue":    cfg.Queue.Name,
			"pending":  stats.Pending,
			"inFlight": stats.InFlight,
		})
	}
	rows := [][]string{{cfg.Queue.Name, strconv.FormatInt(stats.Pending, 10), strconv.FormatInt(stats.InFlight, 10)}}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Queue", "Pending", "In flight"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight}))
	return nil
}
