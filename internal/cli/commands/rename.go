package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRenameCommand creates the rename command.
func NewRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <view-name> <new-view-name>",
		Short: "Rename a continuous aggregate view",
		Long:  `Rename an aggregate's user view, optionally moving it to another schema. The backing objects keep their id-derived names.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			schema, name := splitViewName(args[0], cmdCtx.Cfg)
			newSchema, newName := splitViewName(args[1], cmdCtx.Cfg)
			if err := cmdCtx.Engine.Rename(cmd.Context(), schema, name, newSchema, newName); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s.%s to %s.%s\n", schema, name, newSchema, newName)
			return nil
		},
	}
}
