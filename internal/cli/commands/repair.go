package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tidemark-db/tidemark/internal/engine"
)

// NewRepairCommand creates the repair command.
func NewRepairCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "repair [view-name]",
		Short: "Recompile aggregates and swap stale definitions",
		Long: `Recompile one aggregate (or with --all, every aggregate) from its
stored declaration and swap the stored definitions when they drifted
from a fresh compile. Live view renames are preserved; drift the
compiler cannot reconcile is reported and skipped.`,
		Example: `  # Repair one aggregate
  tidemark repair sensors_hourly

  # Repair everything in the catalog
  tidemark repair --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("pass a view name or --all, not both")
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			var reports []*engine.RepairReport
			if all {
				reports, err = cmdCtx.Engine.RepairAll(cmd.Context())
			} else {
				schema, name := splitViewName(args[0], cmdCtx.Cfg)
				var report *engine.RepairReport
				report, err = cmdCtx.Engine.Repair(cmd.Context(), schema, name)
				if report != nil {
					reports = append(reports, report)
				}
			}
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"View", "Action", "Detail"})
			for _, report := range reports {
				detail := ""
				if report.Warning != nil {
					detail = report.Warning.Error()
				}
				t.AppendRow(table.Row{
					report.Aggregate.ViewSchema + "." + report.Aggregate.ViewName,
					string(report.Action),
					detail,
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "repair every aggregate in the catalog")

	return cmd
}
