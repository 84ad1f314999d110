package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kinship/internal/server"
	"github.com/matzehuels/kinship/pkg/store"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		storeURL  string
		noCache   bool
		assetOpts assetFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and live reveal stream",
		Long: `Serve the HTTP API and live reveal stream.

Records are kept in the store named by --store (memory://, file:///dir or
mongodb://host/db). Layouts are cached in the configured cache, which may be
Redis when several replicas share it. Live sessions stream engine frames over
a websocket at /live/{id}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.Config.Server.Addr
			}
			if storeURL == "" {
				storeURL = c.Config.Store.URL
			}
			return c.runServe(cmd.Context(), addr, storeURL, noCache, &assetOpts)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from settings, :8080)")
	cmd.Flags().StringVar(&storeURL, "store", "", "record store URL (default memory://)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	assetOpts.register(cmd)

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr, storeURL string, noCache bool, assetOpts *assetFlags) error {
	st, err := store.Open(ctx, storeURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	aspects, err := c.aspects(assetOpts)
	if err != nil {
		return err
	}
	runner.Renderer.Aspects = aspects

	srv := server.New(server.Options{
		Runner:   runner,
		Store:    st,
		Settings: c.Config,
		Logger:   c.Logger,
		Aspects:  aspects,
	})
	printInfo("Serving on %s", StyleLink.Render("http://"+displayAddr(addr)))
	printDetail("store %s", storeURL)
	return srv.ListenAndServe(ctx, addr)
}

// displayAddr turns ":8080" into "localhost:8080".
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
