package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/layerviz/pkg/pipeline"
)

// renderFlags holds the command-line flags for the render command.
type renderFlags struct {
	output     string  // output file (single format) or base path (several)
	formats    string  // comma-separated: json, svg, dot, png
	width      float64 // SVG viewport width
	height     float64 // SVG viewport height
	labels     bool    // draw layer labels
	detailed   bool    // one Graphviz node per neuron
	background string  // SVG background fill
	weights    string  // weight mode: stable or random
	seed       uint64
	epoch      uint64
	rotation   float64 // radians about the y axis
	noCache    bool
	refresh    bool
}

// renderCommand renders the network file to one or more formats.
func (c *CLI) renderCommand() *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the network as a scene, SVG or Graphviz diagram",
		Long: `Render the network as a scene, SVG or Graphviz diagram.

Formats:
  json  the 3D scene (camera, lights, spheres, weighted lines)
  svg   an orthographic view of the scene
  dot   a Graphviz node-link diagram of the layers
  png   the Graphviz diagram rasterised

Edge colours come from the weights in the file when it has them, otherwise
from stable per-edge weights (--weights random picks new ones every run).
Deterministic renders are cached.`,
		Example: `  layerviz render
  layerviz render --format svg,json -o out/net
  layerviz render --format png --detailed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, &f)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.output, "output", "o", "", "output file (single format) or base path (several formats)")
	fs.StringVar(&f.formats, "format", "", "output format(s): svg (default), json, dot, png (comma-separated)")
	fs.Float64Var(&f.width, "width", pipeline.DefaultWidth, "SVG width")
	fs.Float64Var(&f.height, "height", pipeline.DefaultHeight, "SVG height")
	fs.BoolVar(&f.labels, "labels", false, "label layers")
	fs.BoolVar(&f.detailed, "detailed", false, "draw every neuron in the Graphviz diagram")
	fs.StringVar(&f.background, "background", "", "SVG background colour")
	fs.StringVar(&f.weights, "weights", "", "weight mode: stable or random (overrides config)")
	fs.Uint64Var(&f.seed, "seed", 0, "stable weight seed (overrides config)")
	fs.Uint64Var(&f.epoch, "epoch", 0, "stable weight epoch")
	fs.Float64Var(&f.rotation, "rotation", 0, "scene rotation about the y axis in radians")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable caching")
	fs.BoolVar(&f.refresh, "refresh", false, "ignore cached artifacts")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, f *renderFlags) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	n, err := c.loadNetwork()
	if err != nil {
		return err
	}
	logger.Debugf("Loaded %s: %d layers, %d neurons", c.file, n.Arch.Len(), n.Arch.TotalNeurons())

	opts := c.renderOptions(n)
	opts.Formats = parseFormats(f.formats)
	opts.Width, opts.Height = f.width, f.height
	opts.Labels, opts.Detailed = f.labels, f.detailed
	opts.Background = f.background
	opts.Refresh = f.refresh
	opts.Scene.Epoch = f.epoch
	opts.Scene.Rotation = f.rotation
	if cmd.Flags().Changed("weights") {
		opts.WeightMode = f.weights
	}
	if cmd.Flags().Changed("seed") {
		opts.Seed = f.seed
	}
	if err := pipeline.ValidateFormats(opts.Formats); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, f.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(logger)
	spinner := newSpinner(ctx, os.Stderr, "Rendering "+strings.Join(opts.Formats, ", ")+"...")
	spinner.Start()
	result, err := runner.Render(ctx, n.Arch, opts)
	spinner.Stop()
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	prog.done(fmt.Sprintf("Rendered %d layers", result.Stats.Layers))

	paths, err := writeArtifacts(result.Artifacts, opts.Formats, f.output, c.file)
	if err != nil {
		return err
	}

	printSuccess("Render complete")
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Stats.Layers, result.Stats.Neurons, result.Stats.Edges, result.CacheInfo.RenderHit)
	return nil
}

// writeArtifacts writes each format to its output path and returns the
// paths in format order.
func writeArtifacts(artifacts map[string][]byte, formats []string, output, input string) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		path := outputPath(output, input, format, len(formats) > 1)
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create output dir: %w", err)
			}
		}
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return nil, fmt.Errorf("write output %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// outputPath picks the file for one format. A single-format render writes
// to output verbatim; otherwise output (or the input file) is a base path
// that gets the format extension. The JSON scene of network.json becomes
// network.scene.json so it never overwrites the input.
func outputPath(output, input, format string, multiple bool) string {
	if output != "" && !multiple {
		return output
	}
	base := basePath(output, input)
	if format == pipeline.FormatJSON {
		return base + ".scene.json"
	}
	return base + "." + format
}

// basePath strips a known format extension from output, or the extension
// of input when output is empty.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
