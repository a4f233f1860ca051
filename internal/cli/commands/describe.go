package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	var showSQL bool

	cmd := &cobra.Command{
		Use:   "describe <view-name>",
		Short: "Show details of a continuous aggregate",
		Long:  `Show the catalog record of one continuous aggregate: bucket descriptor, modes, watermark, and with --sql the stored query texts.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			store := cmdCtx.Engine.Store()
			schema, name := splitViewName(args[0], cmdCtx.Cfg)
			agg, err := store.GetAggregateByName(schema, name)
			if err != nil {
				return fmt.Errorf("continuous aggregate %s.%s: %w", schema, name, err)
			}

			watermark := "not set"
			if value, ok, err := store.Watermark(agg.ID); err != nil {
				return err
			} else if ok {
				watermark = fmt.Sprintf("%d", value)
			}

			source := sourceName(store, agg)

			w := cmd.OutOrStdout()
			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetStyle(table.StyleLight)
			t.AppendRow(table.Row{"View", agg.ViewSchema + "." + agg.ViewName})
			t.AppendRow(table.Row{"ID", agg.ID})
			t.AppendRow(table.Row{"Source", source})
			t.AppendRow(table.Row{"Bucket function", agg.BucketFunc})
			t.AppendRow(table.Row{"Bucket column", agg.BucketColumn})
			t.AppendRow(table.Row{"Bucket width", agg.BucketWidth})
			if agg.BucketTimezone != "" {
				t.AppendRow(table.Row{"Bucket timezone", agg.BucketTimezone})
			}
			if agg.BucketOrigin != "" {
				t.AppendRow(table.Row{"Bucket origin", agg.BucketOrigin})
			}
			t.AppendRow(table.Row{"Finalized", agg.Finalized})
			t.AppendRow(table.Row{"Realtime", !agg.MaterializedOnly})
			t.AppendRow(table.Row{"Watermark", watermark})
			t.AppendRow(table.Row{"Created", agg.CreatedAt.Format("2006-01-02 15:04:05")})
			t.AppendRow(table.Row{"Updated", agg.UpdatedAt.Format("2006-01-02 15:04:05")})
			t.Render()

			if showSQL {
				_, _ = fmt.Fprintf(w, "\nDeclaration:\n%s\n", agg.DirectSQL)
				_, _ = fmt.Fprintf(w, "\nPopulation query:\n%s\n", agg.PartialSQL)
				_, _ = fmt.Fprintf(w, "\nUser view:\n%s\n", agg.UserSQL)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSQL, "sql", false, "print the stored query texts")

	return cmd
}
