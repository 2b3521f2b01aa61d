package sink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/scene"
)

// DOTOptions configures node-link diagram generation.
type DOTOptions struct {
	// Detailed draws one node per neuron with weight-coloured edges instead
	// of one node per layer.
	Detailed bool
}

// Graphviz output formats supported by [RenderDOT].
const (
	DOTFormatSVG = "svg"
	DOTFormatPNG = "png"
)

// ToDOT converts an architecture and its scene into Graphviz DOT, laid out
// left to right in layer order.
func ToDOT(a *arch.Architecture, s scene.Scene, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	if opts.Detailed {
		buf.WriteString("  node [shape=circle, style=filled, label=\"\", width=0.25, fixedsize=true];\n")
		buf.WriteString("  ranksep=1.2;\n  nodesep=0.1;\n\n")
		writeNeurons(&buf, a, s)
	} else {
		buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
		buf.WriteString("  ranksep=0.6;\n\n")
		writeLayers(&buf, a)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func writeLayers(buf *bytes.Buffer, a *arch.Architecture) {
	for i := range a.Layers {
		l := &a.Layers[i]
		fmt.Fprintf(buf, "  %q [label=%q];\n", layerNode(i), layerLabel(l, i))
	}
	buf.WriteString("\n")
	for i := 0; i+1 < len(a.Layers); i++ {
		edges := a.Layers[i].Neurons * a.Layers[i+1].Neurons
		fmt.Fprintf(buf, "  %q -> %q [label=%q];\n", layerNode(i), layerNode(i+1), strconv.Itoa(edges))
	}
	for i := range a.Layers {
		for _, ref := range a.Layers[i].SkipConnections {
			if j := findLayer(a, ref); j >= 0 {
				fmt.Fprintf(buf, "  %q -> %q [style=dashed, constraint=false];\n", layerNode(i), layerNode(j))
			}
		}
	}
}

func writeNeurons(buf *bytes.Buffer, a *arch.Architecture, s scene.Scene) {
	byLayer := map[int][]scene.Sphere{}
	for _, sp := range s.Spheres {
		byLayer[sp.Layer] = append(byLayer[sp.Layer], sp)
	}
	for i := range a.Layers {
		fmt.Fprintf(buf, "  subgraph \"cluster_%d\" {\n", i)
		fmt.Fprintf(buf, "    label=%q;\n    style=dashed;\n", a.Layers[i].Label(i))
		for _, sp := range byLayer[i] {
			fmt.Fprintf(buf, "    %q [fillcolor=%q];\n", neuronNode(sp.Layer, sp.Index), sp.Color)
		}
		buf.WriteString("  }\n")
	}
	buf.WriteString("\n")
	for _, l := range s.Lines {
		fmt.Fprintf(buf, "  %q -> %q [color=%q, arrowhead=none];\n",
			neuronNode(l.Layer, l.From), neuronNode(l.Layer+1, l.To), l.Color)
	}
}

func layerNode(i int) string     { return fmt.Sprintf("L%d", i) }
func neuronNode(i, j int) string { return fmt.Sprintf("L%d_%d", i, j) }

func layerLabel(l *arch.Layer, i int) string {
	label := fmt.Sprintf("%s\n%d neurons", l.Label(i), l.Neurons)
	if l.Activation != "" {
		label += "\n" + string(l.Activation)
	}
	return label
}

// findLayer resolves a skip-connection reference by layer ID, name or
// "Layer N" label.
func findLayer(a *arch.Architecture, ref string) int {
	if ref == "" {
		return -1
	}
	if i := a.Index(ref); i >= 0 {
		return i
	}
	for i := range a.Layers {
		if a.Layers[i].Label(i) == ref {
			return i
		}
	}
	return -1
}

// RenderDOT renders a DOT graph with Graphviz into format ("svg" or "png").
func RenderDOT(ctx context.Context, dot, format string) ([]byte, error) {
	var f graphviz.Format
	switch format {
	case DOTFormatSVG:
		f = graphviz.SVG
	case DOTFormatPNG:
		f = graphviz.PNG
	default:
		return nil, fmt.Errorf("unsupported graphviz format: %s", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, f, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if f == graphviz.SVG {
		return normalizeViewBox(buf.Bytes()), nil
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the Graphviz root element so the diagram scales
// from the origin like the other sinks.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
