package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tidemark-db/tidemark/internal/compile"
)

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	var (
		sqlText          string
		finalized        bool
		materializedOnly bool
		groupIndexes     bool
	)

	cmd := &cobra.Command{
		Use:   "create <view-name> [declaration-file]",
		Short: "Create a continuous aggregate",
		Long: `Create a continuous aggregate from a declaration query.

The declaration is a single SELECT with a time_bucket expression in both
the projection and the GROUP BY, read from a file argument or --sql.
Creation compiles the declaration, provisions the backing table and
views on the target, and records everything in the catalog atomically.`,
		Example: `  # Hourly averages per device, declaration inline
  tidemark create sensors_hourly --sql \
    "SELECT time_bucket('1 hour', ts) AS bucket, device, avg(temp) AS avg_temp FROM sensors GROUP BY bucket, device"

  # Declaration from a file, materialized only (no real-time union)
  tidemark create analytics.sensors_daily daily.sql --materialized-only`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			declaration, err := readDeclaration(args, sqlText)
			if err != nil {
				return err
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := compile.Options{
				Finalized:          cmdCtx.Cfg.Defaults.Finalized,
				MaterializedOnly:   cmdCtx.Cfg.Defaults.MaterializedOnly,
				CreateGroupIndexes: cmdCtx.Cfg.Defaults.CreateGroupIndexes,
			}
			if cmd.Flags().Changed("finalized") {
				opts.Finalized = finalized
			}
			if cmd.Flags().Changed("materialized-only") {
				opts.MaterializedOnly = materializedOnly
			}
			if cmd.Flags().Changed("group-indexes") {
				opts.CreateGroupIndexes = groupIndexes
			}

			schema, name := splitViewName(args[0], cmdCtx.Cfg)
			agg, err := cmdCtx.Engine.Create(cmd.Context(), schema, name, declaration, opts)
			if err != nil {
				return err
			}

			mode := "real-time"
			if agg.MaterializedOnly {
				mode = "materialized only"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created continuous aggregate %s.%s (id %d, %s)\n",
				agg.ViewSchema, agg.ViewName, agg.ID, mode)
			return nil
		},
	}

	cmd.Flags().StringVar(&sqlText, "sql", "", "declaration query (alternative to a file argument)")
	cmd.Flags().BoolVar(&finalized, "finalized", true, "materialize finished values instead of partial aggregate state")
	cmd.Flags().BoolVar(&materializedOnly, "materialized-only", false, "skip the real-time union; the view reads materialized data only")
	cmd.Flags().BoolVar(&groupIndexes, "group-indexes", true, "create indexes on group columns of the backing table")

	return cmd
}

func readDeclaration(args []string, sqlText string) (string, error) {
	if sqlText != "" {
		if len(args) > 1 {
			return "", fmt.Errorf("pass the declaration as a file argument or --sql, not both")
		}
		return sqlText, nil
	}
	if len(args) < 2 {
		return "", fmt.Errorf("declaration required: pass a file argument or --sql")
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return "", fmt.Errorf("failed to read declaration: %w", err)
	}
	decl := strings.TrimSpace(string(data))
	if decl == "" {
		return "", fmt.Errorf("declaration file %s is empty", args[1])
	}
	return decl, nil
}
