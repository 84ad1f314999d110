package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kinship/pkg/graph"
	"github.com/matzehuels/kinship/pkg/pipeline"
)

// layoutCommand creates the layout command for computing layouts.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output string
		flags  layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [record.json]",
		Short: "Compute the ring, phylogeny or incubator layout of a record",
		Long: `Compute the ring, phylogeny or incubator layout of a record.

The output is a layout.json file holding the mode and the positions it
produced. Phylogeny layouts also carry the camera that frames them.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &flags)
			if err != nil {
				return err
			}
			return c.runLayout(cmd.Context(), args[0], opts, output, flags.noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	flags.register(cmd)

	return cmd
}

// runLayout loads the record, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	rec, err := readRecord(input)
	if err != nil {
		return fmt.Errorf("load record %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	g, _, err := runner.BuildGraphWithCacheInfo(ctx, rec, opts.Refresh)
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Computing %s layout...", opts.Mode))
	spinner.Start()

	l, cacheHit, err := runner.ComputeLayoutWithCacheInfo(ctx, g, rec, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if output == "-" {
		data, err := graph.MarshalLayout(l)
		if err != nil {
			return err
		}
		_, err = c.out.Write(data)
		return err
	}
	path := outputPath(output, input, ".layout.json")
	if err := graph.WriteLayoutFile(l, path); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}

	printSuccess("Layout complete")
	printFile(path)
	printStats(l.NodeCount(), g.EdgeCount(), cacheHit)
	if l.Incubator != nil && l.Incubator.Dropped > 0 {
		printWarning("%d nodes over capacity were left out (--max-nodes %d)", l.Incubator.Dropped, opts.MaxNodes)
	}
	printNewline()
	printNextStep("Animate", appName+" animate --watch -m "+string(opts.Mode)+" "+input)
	return nil
}
