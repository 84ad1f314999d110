package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kinship/pkg/capture"
	kerrors "github.com/matzehuels/kinship/pkg/errors"
	"github.com/matzehuels/kinship/pkg/pipeline"
)

// captureCommand creates the capture command: one PNG frame of the reveal.
func (c *CLI) captureCommand() *cobra.Command {
	var (
		output    string
		font      string
		remote    string
		flags     layoutFlags
		assetOpts assetFlags
		frame     = struct {
			t             float32
			width, height int
		}{t: pipeline.DefaultTime, width: pipeline.DefaultWidth, height: pipeline.DefaultHeight}
	)

	cmd := &cobra.Command{
		Use:   "capture [record.json]",
		Short: "Capture a PNG frame of the reveal animation",
		Long: `Capture a PNG frame of the reveal animation at time t.

The animation is simulated headless from t=0. Frames are rasterized by the
bundled renderer; when that is unavailable the remote render service named
by --render-url (or KINSHIP_RENDER_URL) is used. Capture failures are
reported but never change the layout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &flags)
			if err != nil {
				return err
			}
			opts.Formats = []string{pipeline.FormatPNG}
			opts.Time = frame.t
			opts.Width = frame.width
			opts.Height = frame.height
			if err := opts.ValidateForRender(); err != nil {
				return err
			}
			aspects, err := c.aspects(&assetOpts)
			if err != nil {
				return err
			}
			rd := pipeline.Renderer{Aspects: aspects}
			if cmd.Flags().Changed("font") || cmd.Flags().Changed("render-url") {
				rd.Capture = capture.NewLoader(capture.Bundled(font), capture.RemoteSource(remote, nil))
			}
			return c.runCapture(cmd.Context(), args[0], opts, output, flags.noCache, rd)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.png)")
	cmd.Flags().Float32VarP(&frame.t, "time", "t", frame.t, "animation time in seconds")
	cmd.Flags().IntVar(&frame.width, "width", frame.width, "frame width in pixels")
	cmd.Flags().IntVar(&frame.height, "height", frame.height, "frame height in pixels")
	cmd.Flags().StringVar(&font, "font", os.Getenv(capture.EnvFont), "TrueType font for node labels")
	cmd.Flags().StringVar(&remote, "render-url", os.Getenv(capture.EnvRemoteURL), "remote render service")
	flags.register(cmd)
	assetOpts.register(cmd)

	return cmd
}

func (c *CLI) runCapture(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool, rd pipeline.Renderer) error {
	rec, err := readRecord(input)
	if err != nil {
		return fmt.Errorf("load record %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	g, err := runner.BuildGraph(ctx, rec)
	if err != nil {
		return err
	}
	l, err := runner.ComputeLayout(ctx, g, rec, opts)
	if err != nil {
		return fmt.Errorf("compute layout: %w", err)
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Capturing t=%.1fs...", opts.Time))
	spinner.Start()
	p := newProgress(c.Logger)

	data, err := rd.Frame(ctx, l, opts)
	if err != nil {
		spinner.StopWithError("Capture failed")
		if kerrors.Is(err, kerrors.ErrCodeCaptureUnavailable) {
			printDetail("set --font or --render-url to enable capture")
		}
		return err
	}
	spinner.Stop()
	p.done("Captured frame")

	path := outputPath(output, input, ".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}
	printSuccess("Captured %s at t=%.1fs", opts.Mode, opts.Time)
	printFile(path)
	printKeyValue("size", fmt.Sprintf("%dx%d", opts.Width, opts.Height))
	return nil
}
