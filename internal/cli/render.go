package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kinship/pkg/pipeline"
)

// renderCommand creates the render command: record in, artifacts out.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		flags      layoutFlags
		assetOpts  assetFlags
		detailed   bool
	)

	cmd := &cobra.Command{
		Use:   "render [record.json]",
		Short: "Render a record's lineage graph to DOT, SVG, JSON or PNG",
		Long: `Render a record's lineage graph.

DOT and SVG draw the graph as a node-link diagram, JSON writes the layout and
PNG captures a frame of the reveal animation (see 'capture' for frame
options). Several formats may be requested at once; each is written to
<base>.<format>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &flags)
			if err != nil {
				return err
			}
			opts.Formats = parseFormats(formatsStr)
			opts.Detailed = detailed
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			aspects, err := c.aspects(&assetOpts)
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], opts, output, flags.noCache, aspects)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, json, png (comma-separated)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "show node kinds and levels (dot, svg)")
	flags.register(cmd)
	assetOpts.register(cmd)

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool, aspects pipeline.Aspects) error {
	rec, err := readRecord(input)
	if err != nil {
		return fmt.Errorf("load record %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	runner.Renderer.Aspects = aspects

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", strings.Join(opts.Formats, ", ")))
	spinner.Start()

	result, err := runner.Execute(ctx, rec, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	paths, err := writeArtifacts(result.Artifacts, opts.Formats, input, output)
	if err != nil {
		return err
	}

	printSuccess("Rendered %s", rec.OriginalImage)
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.RenderHit)
	return nil
}

// writeArtifacts writes one file per format. A single format goes to output
// as given; several formats share output as a base path.
func writeArtifacts(artifacts map[string][]byte, formats []string, input, output string) ([]string, error) {
	base := basePath(output, input)
	var paths []string
	for _, format := range formats {
		path := base + "." + format
		if len(formats) == 1 && output != "" {
			path = output
		}
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// basePath derives the base output path. Known format extensions are
// stripped from output; without output the input name is used.
func basePath(output, input string) string {
	if output == "" {
		if input == "-" {
			return "record"
		}
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if slices.Contains(pipeline.Formats, strings.TrimPrefix(ext, ".")) {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
