// Package cli implements the layerviz command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/buildinfo"
	"github.com/matzehuels/layerviz/pkg/cache"
	"github.com/matzehuels/layerviz/pkg/config"
	netio "github.com/matzehuels/layerviz/pkg/io"
	"github.com/matzehuels/layerviz/pkg/observability"
	"github.com/matzehuels/layerviz/pkg/pipeline"
	"github.com/matzehuels/layerviz/pkg/project"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = config.AppName

	// defaultFile is the network file edited when --file is not given.
	defaultFile = "network.json"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives command output. Status lines and logs go to the logger.
	Out io.Writer
	// In is read for confirmations.
	In io.Reader

	Config     config.Config
	configPath string
	file       string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
		In:     os.Stdin,
		Config: config.Default(),
		file:   defaultFile,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "layerviz edits and renders neural network architectures in 3D",
		Long: `layerviz keeps a neural network architecture (an ordered list of layers
with neuron counts and optional hyperparameters) in a JSON file, lays the
neurons out in 3D space and renders the network as a scene, SVG, Graphviz
diagram or interactive terminal editor.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/layerviz/config.toml)")
	root.PersistentFlags().StringVarP(&c.file, "file", "f", defaultFile, "network file to edit")

	// Register all subcommands
	root.AddCommand(c.newCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.addCommand())
	root.AddCommand(c.withLayerCompletion(c.removeCommand(), 1))
	root.AddCommand(c.withLayerCompletion(c.moveCommand(), 2))
	root.AddCommand(c.withLayerCompletion(c.setCommand(), 1))
	root.AddCommand(c.withLayerCompletion(c.renameCommand(), 1))
	root.AddCommand(c.withLayerCompletion(c.editCommand(), 1))
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.tuiCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.projectCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Network File
// =============================================================================

// loadNetwork reads the --file network. A missing file yields the default
// network so the first edit creates it.
func (c *CLI) loadNetwork() (*netio.Network, error) {
	n, err := pipeline.Load(c.file, c.Config.Limits.MaxNeurons)
	if err != nil {
		return nil, err
	}
	n.Arch.SetMaxNeurons(c.Config.Limits.MaxNeurons)
	return n, nil
}

// saveNetwork writes n back to the --file network in the variant that
// keeps everything it holds.
func (c *CLI) saveNetwork(n *netio.Network) error {
	return netio.ExportJSON(n, variantFor(n), c.file)
}

// variantFor picks the simple format unless a layer carries
// hyperparameters that only the extended format can hold.
func variantFor(n *netio.Network) netio.Variant {
	if n.Shape == netio.ShapeExtended {
		return netio.Extended
	}
	for i := range n.Arch.Layers {
		if n.Arch.Layers[i].HasHyperparameters() {
			return netio.Extended
		}
	}
	return netio.Simple
}

// mutate loads the network, applies fn and saves the result. Supplied
// weights and biases follow their layers; those that no longer fit are
// dropped.
func (c *CLI) mutate(op string, fn func(a *arch.Architecture) error) (*netio.Network, error) {
	n, err := c.loadNetwork()
	if err != nil {
		return nil, err
	}
	edited := n.Arch.Clone()
	err = fn(edited)
	observability.Registry().OnMutation(context.Background(), op, edited.Len(), edited.TotalNeurons(), err)
	if err != nil {
		return nil, err
	}
	if n.Refit(edited) {
		c.Logger.Warn("dropping supplied weights or biases that no longer match the layers")
	}
	if err := c.saveNetwork(n); err != nil {
		return nil, err
	}
	c.Logger.Debug("saved network", "file", c.file, "layers", n.Arch.Len(), "neurons", n.Arch.TotalNeurons())
	return n, nil
}

// =============================================================================
// Runner and Store Factories
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(ch, nil, c.Logger)
	if c.Config.Cache.TTL > 0 {
		r.TTL = c.Config.Cache.TTL
	}
	return r, nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache || c.Config.Cache.Disabled {
		return cache.NewNullCache(), nil
	}
	if addr := c.Config.Cache.RedisAddr; addr != "" {
		return cache.NewRedisCache(ctx, addr)
	}
	dir, err := c.cacheDir()
	if err != nil {
		c.Logger.Warn("cache disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

func (c *CLI) openStore(ctx context.Context) (project.Store, error) {
	return project.Open(ctx, c.Config.Store)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, or the per-user default.
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cache.DefaultDir()
}

// =============================================================================
// Options Helpers
// =============================================================================

// renderOptions builds pipeline options from the loaded config.
func (c *CLI) renderOptions(n *netio.Network) pipeline.Options {
	opts := pipeline.Options{
		LayerSpacing:  c.Config.Layout.LayerSpacing,
		NeuronSpacing: c.Config.Layout.NeuronSpacing,
		Scene:         c.Config.SceneOptions(),
		WeightMode:    string(c.Config.WeightMode()),
		Seed:          c.Config.Weights.Seed,
		Weights:       n.Weights,
		Logger:        c.Logger,
	}
	opts.SetLayoutDefaults()
	opts.SetRenderDefaults()
	return opts
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
