package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRealtimeCommand creates the realtime command.
func NewRealtimeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime <view-name> <on|off>",
		Short: "Switch an aggregate between real-time and materialized only",
		Long: `Switch the user view of an aggregate between real-time (materialized
history unioned with freshly aggregated recent data) and materialized
only (the view reads the backing table alone).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var realtime bool
			switch args[1] {
			case "on":
				realtime = true
			case "off":
				realtime = false
			default:
				return fmt.Errorf("expected on or off, got %q", args[1])
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			schema, name := splitViewName(args[0], cmdCtx.Cfg)
			if err := cmdCtx.Engine.SetRealtime(cmd.Context(), schema, name, realtime); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Realtime %s for %s.%s\n", args[1], schema, name)
			return nil
		},
	}

	return cmd
}
