package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kinship/pkg/graph"
)

// graphCommand creates the graph command: record in, canonical graph out.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "graph [record.json]",
		Short: "Build the canonical lineage graph of a relation record",
		Long: `Build the canonical lineage graph of a relation record.

The record may carry a precomputed lineage graph; it is sanitized against the
record's relation lists and replaced by a graph built from those lists when it
is unusable. Pass "-" to read the record from stdin and "-o -" to write the
graph to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), args[0], output, noCache, refresh)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.graph.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "rebuild instead of reading the cache")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, input, output string, noCache, refresh bool) error {
	rec, err := readRecord(input)
	if err != nil {
		return fmt.Errorf("load record %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	p := newProgress(c.Logger)
	g, hit, err := runner.BuildGraphWithCacheInfo(ctx, rec, refresh)
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Built graph of %s", rec.OriginalImage))

	if output == "-" {
		return graph.WriteGraph(g, rec.OriginalImage, c.out)
	}
	path := outputPath(output, input, ".graph.json")
	if err := graph.WriteGraphFile(g, rec.OriginalImage, path); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}

	printSuccess("Graph complete")
	printFile(path)
	printStats(g.NodeCount(), g.EdgeCount(), hit)
	printNewline()
	printNextStep("Lay out", appName+" layout "+input)
	return nil
}
