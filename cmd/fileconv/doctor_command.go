package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fileconv/internal/deps"
	"fileconv/internal/logging"
	"fileconv/internal/preflight"
	"fileconv/internal/runner"
)

type doctorReport struct {
	Checks []preflight.Result `json:"checks"`
	Tools  []deps.Status      `json:"tools"`
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var quick bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, storage, queue, services and converter tools",
		Long: "Run the worker's preflight checks and report which converter tools are\n" +
			"installed. By default every capability is resolved and version-probed;\n" +
			"--quick only looks the candidates up on PATH.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			report := doctorReport{Checks: preflight.RunAll(cmd.Context(), cfg)}
			if quick {
				report.Tools = preflight.CheckToolsOnPath(cfg)
			} else {
				nop := logging.NewNop()
				resolver := deps.NewResolverFromConfig(cfg, runner.New(cfg.ProbeTimeout(), nop), nop)
				report.Tools = deps.Report(cmd.Context(), resolver)
			}

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				color := colorEnabled(out)

				checkRows := make([][]string, 0, len(report.Checks))
				for _, r := range report.Checks {
					checkRows = append(checkRows, []string{r.Name, checkLabel(r.Passed, r.Optional, color), r.Detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, checkRows, nil))

				toolRows := make([][]string, 0, len(report.Tools))
				for _, s := range report.Tools {
					toolRows = append(toolRows, []string{
						s.Name,
						checkLabel(s.Available, s.Optional, color),
						s.Command,
						s.Detail,
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Capability", "Status", "Command", "Detail"}, toolRows, nil))
			}

			if failed := preflight.Failed(report.Checks); len(failed) > 0 {
				return fmt.Errorf("%d required check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&quick, "quick", false, "Skip version probes and only search PATH")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of tables")
	return cmd
}
