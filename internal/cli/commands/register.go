package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRegisterCommand creates the register command.
func NewRegisterCommand() *cobra.Command {
	var (
		timeColumn string
		width      string
	)

	cmd := &cobra.Command{
		Use:   "register <table>",
		Short: "Register a table as a hypertable",
		Long: `Register an existing table in the catalog so aggregate declarations
can read from it. The time column and its partition width drive the
bucket arithmetic of every aggregate built on top.`,
		Example: `  # Register a timestamped table partitioned by day
  tidemark register public.sensors --time-column ts --width '1 day'

  # Register an integer-partitioned table
  tidemark register events --time-column tick --width 3600`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if timeColumn == "" {
				return fmt.Errorf("--time-column is required")
			}
			if width == "" {
				return fmt.Errorf("--width is required")
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ht, err := cmdCtx.Engine.RegisterSource(cmd.Context(), args[0], timeColumn, width)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Registered hypertable %s.%s (id %d, %s %s)\n",
				ht.Schema, ht.Name, ht.ID, ht.TimeColumn, ht.ColumnType)
			return nil
		},
	}

	cmd.Flags().StringVar(&timeColumn, "time-column", "", "partition column of the table")
	cmd.Flags().StringVar(&width, "width", "", "partition width (interval for time columns, integer otherwise)")

	return cmd
}
