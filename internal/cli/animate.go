package cli

import (
	"context"
	"encoding/json"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kinship/pkg/graph"
	"github.com/matzehuels/kinship/pkg/layout"
	"github.com/matzehuels/kinship/pkg/pipeline"
	"github.com/matzehuels/kinship/pkg/reveal"
)

// animateCommand creates the animate command: a headless run of the reveal
// engine, or a live terminal preview with --watch.
func (c *CLI) animateCommand() *cobra.Command {
	var (
		flags     layoutFlags
		assetOpts assetFlags
		until     float32
		watch     bool
		asJSON    bool
		ticks     int
	)

	cmd := &cobra.Command{
		Use:   "animate [record.json]",
		Short: "Run the reveal animation of a record",
		Long: `Run the reveal animation of a record.

Without --watch the engine is stepped headless to --until seconds and the
final node states are printed (as JSON with --json). With --watch the
animation plays in the terminal in real time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &flags)
			if err != nil {
				return err
			}
			aspects, err := c.aspects(&assetOpts)
			if err != nil {
				return err
			}
			if watch {
				return c.runWatch(cmd.Context(), args[0], opts, flags.noCache, aspects, ticks)
			}
			return c.runAnimate(cmd.Context(), args[0], opts, flags.noCache, aspects, until, asJSON)
		},
	}

	cmd.Flags().Float32Var(&until, "until", pipeline.DefaultTime, "simulated seconds (headless)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "play the animation in the terminal")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the final frame as JSON (headless)")
	cmd.Flags().IntVar(&ticks, "fps", defaultTicks, "terminal refresh rate (--watch)")
	flags.register(cmd)
	assetOpts.register(cmd)

	return cmd
}

// prepare builds the graph and layout of a record and returns them together
// with a function that lays the same graph out in another mode.
func (c *CLI) prepare(ctx context.Context, input string, opts pipeline.Options, noCache bool) (graph.Layout, relayoutFunc, func() error, error) {
	rec, err := readRecord(input)
	if err != nil {
		return graph.Layout{}, nil, nil, fmt.Errorf("load record %s: %w", input, err)
	}
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return graph.Layout{}, nil, nil, fmt.Errorf("initialize runner: %w", err)
	}
	g, err := runner.BuildGraph(ctx, rec)
	if err != nil {
		runner.Close()
		return graph.Layout{}, nil, nil, err
	}
	l, err := runner.ComputeLayout(ctx, g, rec, opts)
	if err != nil {
		runner.Close()
		return graph.Layout{}, nil, nil, fmt.Errorf("compute layout: %w", err)
	}
	relayout := func(m layout.Mode) (graph.Layout, error) {
		o := opts
		o.Mode = m
		return runner.ComputeLayout(ctx, g, rec, o)
	}
	return l, relayout, runner.Close, nil
}

func (c *CLI) runAnimate(ctx context.Context, input string, opts pipeline.Options, noCache bool, aspects pipeline.Aspects, until float32, asJSON bool) error {
	if until < 0 {
		return fmt.Errorf("--until must not be negative")
	}
	l, _, closeRunner, err := c.prepare(ctx, input, opts, noCache)
	if err != nil {
		return err
	}
	defer closeRunner()

	p := newProgress(c.Logger)
	e, err := pipeline.Simulate(ctx, l, aspects, until, opts)
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Simulated %s reveal to t=%.2fs", l.Mode, e.Time()))

	if asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Mode    layout.Mode        `json:"mode"`
			Time    float32            `json:"t"`
			Settled bool               `json:"settled"`
			Nodes   []reveal.NodeState `json:"nodes"`
			Edges   []reveal.EdgeState `json:"edges"`
		}{l.Mode, e.Time(), e.Settled(), e.Nodes(), e.Edges()})
	}

	printKeyValue("mode", string(l.Mode))
	printKeyValue("time", fmt.Sprintf("%.2fs", e.Time()))
	printKeyValue("settled", fmt.Sprint(e.Settled()))
	fmt.Fprintln(c.out, frameTable(e.Nodes()))
	return nil
}

// frameTable renders node states as a table.
func frameTable(nodes []reveal.NodeState) string {
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, []string{
			n.Name,
			renderKind(n.Kind),
			progressBar(n.Progress),
			fmt.Sprintf("%.2f×%.2f", n.ScaleX, n.ScaleY),
			fmt.Sprintf("(%.1f, %.1f, %.1f)", n.Position.X, n.Position.Y, n.Position.Z),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Node", "Kind", "Progress", "Scale", "Position").
		Rows(rows...).
		Render()
}

func (c *CLI) runWatch(ctx context.Context, input string, opts pipeline.Options, noCache bool, aspects pipeline.Aspects, ticks int) error {
	l, relayout, closeRunner, err := c.prepare(ctx, input, opts, noCache)
	if err != nil {
		return err
	}
	defer closeRunner()

	e, err := pipeline.NewEngine(ctx, l, aspects, opts)
	if err != nil {
		return err
	}
	model := NewAnimateModel(e, l, relayout, ticks)
	_, err = tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	return err
}
