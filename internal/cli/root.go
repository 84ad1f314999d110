package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/kinship/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
// Settings are loaded once, before any subcommand runs.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Kinship lays out and animates image lineage graphs",
		Long:         `Kinship turns an image's relation record (parents, siblings, children and ancestors) into a lineage graph and lays it out as a ring cluster, a phylogeny tree or a growing incubator, with a reveal animation on top.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd.Context())
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "settings file (default: $XDG_CONFIG_HOME/kinship/config.toml)")

	root.AddCommand(c.graphCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.animateCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.captureCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
