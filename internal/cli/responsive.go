package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tiledgallery/pkg/pipeline"
)

// responsiveCommand prints the breakpoint and effective layout config for
// a screen width.
func (c *CLI) responsiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "responsive [screen-width]",
		Short: "Show the layout config for a screen width",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			width, err := strconv.ParseFloat(args[0], 64)
			if err != nil || width < 0 {
				return fmt.Errorf("invalid screen width %q", args[0])
			}

			r := pipeline.NewRunner(nil, nil, nil, c.Logger)
			r.Base = c.Config.Layout
			r.Breakpoints = c.Config.Breakpoints
			cfg, name := r.ResolveConfig(pipeline.Request{ScreenWidth: width})

			out := newPrinter(cmd.OutOrStdout())
			out.keyValue("breakpoint", name)
			out.keyValue("columns", strconv.Itoa(cfg.Columns))
			out.keyValue("gap", fmt.Sprintf("%gpx", cfg.Gap))
			out.keyValue("row height", fmt.Sprintf("%gpx (max %gpx, min %gpx)", cfg.TargetRowHeight, cfg.MaxRowHeight, cfg.MinRowHeight()))
			out.keyValue("fill ratio", fmt.Sprintf("%g", cfg.RowFillRatio))
			return nil
		},
	}
}
