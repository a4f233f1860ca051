package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDropCommand creates the drop command.
func NewDropCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "drop <view-name>",
		Short: "Drop a continuous aggregate",
		Long: `Drop an aggregate: its views, its backing table, and its catalog
rows. Refuses while other aggregates are built on top of it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			schema, name := splitViewName(args[0], cmdCtx.Cfg)
			if err := cmdCtx.Engine.Drop(cmd.Context(), schema, name); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dropped continuous aggregate %s.%s\n", schema, name)
			return nil
		},
	}
}
