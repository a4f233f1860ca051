package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tidemark-db/tidemark/internal/state"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var sources bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List continuous aggregates",
		Long:  `List every continuous aggregate in the catalog, and with --sources the registered hypertables too.`,
		Example: `  # List all aggregates
  tidemark list

  # Include registered hypertables
  tidemark list --sources`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			store := cmdCtx.Engine.Store()
			aggs, err := store.ListAggregates()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(aggs) == 0 {
				_, _ = fmt.Fprintln(w, "No continuous aggregates")
			} else {
				t := table.NewWriter()
				t.SetOutputMirror(w)
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"ID", "View", "Source", "Bucket", "Finalized", "Realtime"})
				for _, agg := range aggs {
					t.AppendRow(table.Row{
						agg.ID,
						agg.ViewSchema + "." + agg.ViewName,
						sourceName(store, agg),
						agg.BucketWidth,
						agg.Finalized,
						!agg.MaterializedOnly,
					})
				}
				t.Render()
			}

			if !sources {
				return nil
			}

			hts, err := store.ListHypertables()
			if err != nil {
				return err
			}
			if len(hts) == 0 {
				_, _ = fmt.Fprintln(w, "No registered hypertables")
				return nil
			}
			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Table", "Time Column", "Type", "Partition Width"})
			for _, ht := range hts {
				t.AppendRow(table.Row{ht.ID, ht.Schema + "." + ht.Name, ht.TimeColumn, ht.ColumnType, ht.PartitionWidth})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&sources, "sources", false, "also list registered hypertables")

	return cmd
}

// sourceName renders what an aggregate reads from: the parent view for
// hierarchical aggregates, the base hypertable otherwise.
func sourceName(store *state.SQLiteStore, agg *state.Aggregate) string {
	if agg.ParentID != nil {
		parent, err := store.GetAggregate(*agg.ParentID)
		if err == nil {
			return parent.ViewSchema + "." + parent.ViewName
		}
	}
	ht, err := store.GetHypertableByID(agg.SourceID)
	if err != nil {
		return fmt.Sprintf("#%d", agg.SourceID)
	}
	return ht.Schema + "." + ht.Name
}
