package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/layerviz/pkg/animate"
	"github.com/matzehuels/layerviz/pkg/server"
)

// serveCommand runs the HTTP API over the network file.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noStore   bool
		noAnimate bool
		noCache   bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layer registry over HTTP",
		Long: `Serve the layer registry over HTTP.

The server starts from the network file and keeps the architecture in
memory; use GET /export to download it. Scenes served from /scene follow
the animation's rotation and weight epoch unless --no-animate is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			n, err := c.loadNetwork()
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			opts := []server.Option{
				server.WithArchitecture(n.Arch),
				server.WithWeights(n.Weights),
				server.WithBiases(n.Biases),
				server.WithMaxNeurons(c.Config.Limits.MaxNeurons),
				server.WithRunner(runner),
				server.WithRenderOptions(c.renderOptions(n)),
				server.WithLogger(c.Logger),
			}
			if !noStore {
				store, err := c.openStore(ctx)
				if err != nil {
					return err
				}
				defer store.Close()
				opts = append(opts, server.WithStore(store))
			}
			if !noAnimate {
				ao := c.Config.AnimationOptions()
				ao.Logger = c.Logger
				opts = append(opts, server.WithAnimation(animate.New(ao)))
			}

			if addr == "" {
				addr = c.Config.Server.Addr
			}
			printInfo("Serving %s on %s", c.file, StyleValue.Render("http://"+addr))
			return server.New(opts...).Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "disable the /projects routes")
	cmd.Flags().BoolVar(&noAnimate, "no-animate", false, "serve still scenes")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}

