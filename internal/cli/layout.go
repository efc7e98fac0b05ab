package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tiledgallery/pkg/layout"
	"github.com/matzehuels/tiledgallery/pkg/pipeline"
	"github.com/matzehuels/tiledgallery/pkg/store"
)

// layoutOptions are the flags of the layout command.
type layoutOptions struct {
	output       string
	noCache      bool
	width        float64
	screen       float64
	overrides    layout.Partial
	noResponsive bool
	showRows     bool
	watch        bool
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	opts := layoutOptions{width: 1200, showRows: true}
	var gap float64

	cmd := &cobra.Command{
		Use:   "layout [manifest]",
		Short: "Pack a gallery manifest into rows",
		Long: `Pack a gallery manifest into justified rows.

The manifest is a JSON or TOML file listing images with their dimensions.
The layout is written to <manifest>.layout.json. Breakpoints resolve the
column count, gap and target row height from --screen (or --width when
--screen is not given); explicit flags override the breakpoint.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("gap") {
				opts.overrides.Gap = layout.Px(gap)
			}
			out := newPrinter(cmd.OutOrStdout())
			if err := c.runLayout(cmd.Context(), out, args[0], opts); err != nil {
				return err
			}
			if !opts.watch {
				return nil
			}
			return c.watchLayout(cmd.Context(), out, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <manifest>.layout.json)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().Float64VarP(&opts.width, "width", "w", opts.width, "container width in pixels")
	cmd.Flags().Float64Var(&opts.screen, "screen", 0, "screen width for breakpoint resolution (default: --width)")
	cmd.Flags().IntVar(&opts.overrides.Columns, "columns", 0, "maximum tiles per row")
	cmd.Flags().Float64Var(&gap, "gap", 0, "gap between tiles in pixels (0 for none)")
	cmd.Flags().Float64Var(&opts.overrides.TargetRowHeight, "target-height", 0, "target row height in pixels")
	cmd.Flags().BoolVar(&opts.noResponsive, "no-responsive", false, "ignore breakpoints")
	cmd.Flags().BoolVar(&opts.showRows, "rows", opts.showRows, "print the row table")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "recompute when the manifest changes")

	return cmd
}

// runLayout reads the manifest, computes the layout and writes output.
func (c *CLI) runLayout(ctx context.Context, out printer, input string, opts layoutOptions) error {
	m, err := store.ReadManifest(input)
	if err != nil {
		return fmt.Errorf("load manifest %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, nil, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))
	res, err := runner.Layout(ctx, pipeline.Request{
		Images:         m.Images,
		ContainerWidth: opts.width,
		ScreenWidth:    opts.screen,
		Overrides:      opts.overrides,
		NoResponsive:   opts.noResponsive,
	})
	if err != nil {
		out.error("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	prog.done("packed gallery", "images", len(m.Images), "rows", len(res.Layout.Rows))

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := opts.output
	if outputPath == "" {
		outputPath = strings.TrimSuffix(input, filepath.Ext(input)) + ".layout.json"
	}
	if err := layout.WriteFile(res.Layout, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	name := m.Name
	if name == "" {
		name = filepath.Base(input)
	}
	out.success("Layout complete: %s", name)
	out.file(outputPath)
	out.stats(res.Layout, res.CacheInfo.LayoutHit)
	if res.Breakpoint != "" {
		out.detail("breakpoint %s · %d columns · gap %.0f · target %.0fpx",
			res.Breakpoint, res.Config.Columns, res.Config.Gap, res.Config.TargetRowHeight)
	}
	if opts.showRows && !res.Layout.IsEmpty() {
		out.line(rowTable(res.Layout))
	}
	if res.Layout.IsEmpty() {
		out.warning("Layout is empty (no images or no usable width)")
	}
	out.newline()
	out.nextStep("Simulate loading", appName+" simulate "+input)
	return nil
}

// watchLayout recomputes the layout whenever the manifest changes, until
// ctx is cancelled.
func (c *CLI) watchLayout(ctx context.Context, out printer, input string, opts layoutOptions) error {
	out.info("Watching %s (ctrl-c to stop)", input)
	return store.WatchFile(ctx, input, 200*time.Millisecond, func() {
		if err := c.runLayout(ctx, out, input, opts); err != nil {
			out.error("%v", err)
		}
	})
}
