package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/scene"
	"github.com/matzehuels/layerviz/pkg/scene/sink"
)

// RenderScene encodes s in each requested format. a supplies the layer
// records for the Graphviz diagram.
func RenderScene(ctx context.Context, a *arch.Architecture, s scene.Scene, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	var dot string
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatJSON:
			data, err = sink.RenderJSON(s)
		case FormatSVG:
			data = sink.RenderSVG(s, svgOptions(opts)...)
		case FormatDOT, FormatPNG:
			if dot == "" {
				dot = sink.ToDOT(a, s, sink.DOTOptions{Detailed: opts.Detailed})
			}
			if format == FormatDOT {
				data = []byte(dot)
			} else {
				data, err = sink.RenderDOT(ctx, dot, sink.DOTFormatPNG)
			}
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func svgOptions(opts Options) []sink.SVGOption {
	svgOpts := []sink.SVGOption{sink.WithSize(opts.Width, opts.Height)}
	if opts.Labels {
		svgOpts = append(svgOpts, sink.WithLabels())
	}
	if opts.Background != "" {
		svgOpts = append(svgOpts, sink.WithBackground(opts.Background))
	}
	return svgOpts
}
