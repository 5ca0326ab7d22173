package main

import (
	"github.com/spf13/cobra"

	"fileconv/internal/daemonrun"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	var opts daemonrun.Options

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume the job queue until interrupted",
		Long: "Run the conversion worker in the foreground. The worker checks its\n" +
			"environment, then dequeues job ids and drives each job to completed or\n" +
			"failed. SIGINT or SIGTERM stops it after in-flight jobs return.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Concurrent jobs (defaults to worker.concurrency)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&opts.Development, "dev", false, "Include source locations in log output")
	cmd.Flags().BoolVar(&opts.SkipPreflight, "skip-preflight", false, "Start even when a required preflight check fails")
	return cmd
}
