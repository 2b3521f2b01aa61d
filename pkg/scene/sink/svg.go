package sink

import (
	"bytes"
	"cmp"
	"fmt"
	"html"
	"math"
	"slices"

	"github.com/matzehuels/layerviz/pkg/layout"
	"github.com/matzehuels/layerviz/pkg/scene"
)

// Default SVG viewport.
const (
	DefaultWidth  = 800.0
	DefaultHeight = 600.0
	svgMargin     = 40.0
)

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	width      float64
	height     float64
	labels     bool
	background string
}

// WithSize sets the viewport size in pixels.
func WithSize(w, h float64) SVGOption {
	return func(r *svgRenderer) { r.width, r.height = w, h }
}

// WithLabels draws the layer names above each column.
func WithLabels() SVGOption { return func(r *svgRenderer) { r.labels = true } }

// WithBackground fills the viewport with a CSS colour.
func WithBackground(c string) SVGOption { return func(r *svgRenderer) { r.background = c } }

type projected struct {
	x, y, depth float64
}

// RenderSVG draws an orthographic projection of the scene.
func RenderSVG(s scene.Scene, opts ...SVGOption) []byte {
	r := svgRenderer{width: DefaultWidth, height: DefaultHeight}
	for _, opt := range opts {
		opt(&r)
	}

	view := newViewport(s, r.width, r.height)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		r.width, r.height, r.width, r.height)
	if s.Title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", html.EscapeString(s.Title))
	}
	if r.background != "" {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", html.EscapeString(r.background))
	}

	buf.WriteString(`  <g class="edges" stroke-width="1" stroke-opacity="0.8">` + "\n")
	for _, l := range s.Lines {
		a, b := view.project(l.Start), view.project(l.End)
		fmt.Fprintf(&buf, `    <line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" data-weight="%.4f"/>`+"\n",
			a.x, a.y, b.x, b.y, l.Color, l.Weight)
	}
	buf.WriteString("  </g>\n")

	// Far spheres first so near ones overlap them.
	order := make([]int, len(s.Spheres))
	depth := make([]projected, len(s.Spheres))
	for i, sp := range s.Spheres {
		order[i] = i
		depth[i] = view.project(sp.Position)
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(depth[a].depth, depth[b].depth) })

	buf.WriteString(`  <g class="neurons">` + "\n")
	for _, i := range order {
		sp, p := s.Spheres[i], depth[i]
		fmt.Fprintf(&buf, `    <circle id="%s" cx="%.2f" cy="%.2f" r="%.2f" fill="%s"/>`+"\n",
			html.EscapeString(sp.ID), p.x, p.y, math.Max(sp.Radius*view.scale, 1), sp.Color)
	}
	buf.WriteString("  </g>\n")

	if r.labels && len(s.Labels) > 0 {
		buf.WriteString(`  <g class="labels" font-family="sans-serif" font-size="12" text-anchor="middle" fill="#333">` + "\n")
		for _, lb := range s.Labels {
			p := view.project(lb.Position)
			fmt.Fprintf(&buf, `    <text x="%.2f" y="%.2f">%s</text>`+"\n", p.x, p.y, html.EscapeString(lb.Text))
		}
		buf.WriteString("  </g>\n")
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// viewport maps rotated scene coordinates onto the SVG canvas.
type viewport struct {
	center   layout.Vec3
	sin, cos float64
	scale    float64
	width    float64
	height   float64
}

func newViewport(s scene.Scene, width, height float64) viewport {
	v := viewport{
		center: s.Camera.Target,
		sin:    math.Sin(s.Rotation),
		cos:    math.Cos(s.Rotation),
		width:  width,
		height: height,
		scale:  1,
	}

	var maxX, maxY float64
	extend := func(p layout.Vec3) {
		x, y, _ := v.rotate(p)
		maxX = math.Max(maxX, math.Abs(x))
		maxY = math.Max(maxY, math.Abs(y))
	}
	for _, sp := range s.Spheres {
		extend(sp.Position)
	}
	for _, lb := range s.Labels {
		extend(lb.Position)
	}

	usableW := math.Max(width/2-svgMargin, 1)
	usableH := math.Max(height/2-svgMargin, 1)
	switch {
	case maxX == 0 && maxY == 0:
		v.scale = math.Min(usableW, usableH)
	case maxX == 0:
		v.scale = usableH / maxY
	case maxY == 0:
		v.scale = usableW / maxX
	default:
		v.scale = math.Min(usableW/maxX, usableH/maxY)
	}
	return v
}

// rotate turns p about the vertical axis through the center and returns
// coordinates relative to it.
func (v viewport) rotate(p layout.Vec3) (x, y, z float64) {
	dx, dy, dz := p.X()-v.center.X(), p.Y()-v.center.Y(), p.Z()-v.center.Z()
	return dx*v.cos + dz*v.sin, dy, -dx*v.sin + dz*v.cos
}

func (v viewport) project(p layout.Vec3) projected {
	x, y, z := v.rotate(p)
	return projected{
		x:     v.width/2 + x*v.scale,
		y:     v.height/2 - y*v.scale,
		depth: z,
	}
}
