// Package scene assembles the scene graph handed to the 3D renderer:
// neuron spheres, coloured edge lines, camera, lights and lens flares.
//
// A Scene is plain data. The renderer (a WebGL front end, or one of the
// sinks in scene/sink) decides how to draw it.
package scene

import (
	"fmt"

	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/layout"
	"github.com/matzehuels/layerviz/pkg/weights"
)

// Defaults matching the browser visualizer.
const (
	DefaultNeuronRadius   = 0.15
	DefaultNeuronColor    = "#482957"
	DefaultCameraDistance = 10.0
	DefaultFOV            = 50.0
	DefaultAmbient        = 0.5
	DefaultFlareDistance  = 40.0
)

// Camera is a perspective camera orbiting Target.
type Camera struct {
	Position layout.Vec3 `json:"position"`
	FOV      float64     `json:"fov"`
	Target   layout.Vec3 `json:"target"`
}

// PointLight is an omnidirectional light.
type PointLight struct {
	Position  layout.Vec3 `json:"position"`
	Intensity float64     `json:"intensity"`
	Distance  float64     `json:"distance,omitempty"`
}

// Lights holds the scene lighting.
type Lights struct {
	Ambient float64      `json:"ambient"`
	Points  []PointLight `json:"points"`
	// Flares are the decorative lens-flare lights.
	Flares []PointLight `json:"flares,omitempty"`
}

// Sphere is one neuron.
type Sphere struct {
	ID       string      `json:"id"`
	Layer    int         `json:"layer"`
	Index    int         `json:"index"`
	Position layout.Vec3 `json:"position"`
	Radius   float64     `json:"radius"`
	Color    string      `json:"color"`
}

// Line is one edge between adjacent layers.
type Line struct {
	Layer  int         `json:"layer"`
	From   int         `json:"from"`
	To     int         `json:"to"`
	Start  layout.Vec3 `json:"start"`
	End    layout.Vec3 `json:"end"`
	Weight float64     `json:"weight"`
	Color  string      `json:"color"`
}

// Label names a layer at the top of its column.
type Label struct {
	Layer    int         `json:"layer"`
	Text     string      `json:"text"`
	Position layout.Vec3 `json:"position"`
}

// Scene is the complete renderable description of an architecture.
type Scene struct {
	Title    string   `json:"title,omitempty"`
	Camera   Camera   `json:"camera"`
	Lights   Lights   `json:"lights"`
	Spheres  []Sphere `json:"spheres"`
	Lines    []Line   `json:"lines"`
	Labels   []Label  `json:"labels,omitempty"`
	Rotation float64  `json:"rotation"`
	Epoch    uint64   `json:"epoch,omitempty"`
}

// Options controls scene assembly. Zero fields take the package defaults.
type Options struct {
	NeuronRadius   float64
	NeuronColor    string
	CameraDistance float64
	FOV            float64
	NoFlares       bool
	Rotation       float64
	Epoch          uint64
}

func (o *Options) setDefaults() {
	if o.NeuronRadius == 0 {
		o.NeuronRadius = DefaultNeuronRadius
	}
	if o.NeuronColor == "" {
		o.NeuronColor = DefaultNeuronColor
	}
	if o.CameraDistance == 0 {
		o.CameraDistance = DefaultCameraDistance
	}
	if o.FOV == 0 {
		o.FOV = DefaultFOV
	}
}

// Build assembles the scene for a resolved layout. Layer labels and sphere
// IDs come from a; w colours the edges. A nil provider means stable weights
// with seed 0.
func Build(a *arch.Architecture, l layout.Layout, w weights.Provider, opts Options) Scene {
	opts.setDefaults()
	if w == nil {
		w = weights.Stable{}
	}

	s := Scene{
		Title: a.Title,
		Camera: Camera{
			Position: layout.Vec3{l.Center.X(), l.Center.Y(), opts.CameraDistance},
			FOV:      opts.FOV,
			Target:   l.Center,
		},
		Lights: Lights{
			Ambient: DefaultAmbient,
			Points:  []PointLight{{Position: layout.Vec3{10, 10, 10}, Intensity: 1}},
		},
		Spheres:  make([]Sphere, 0, l.NeuronCount()),
		Lines:    make([]Line, len(l.Edges)),
		Rotation: opts.Rotation,
		Epoch:    opts.Epoch,
	}
	if !opts.NoFlares {
		s.Lights.Flares = Flares(DefaultFlareDistance)
	}

	for i, column := range l.Layers {
		id := fmt.Sprintf("layer-%d", i)
		if i < len(a.Layers) && a.Layers[i].ID != "" {
			id = a.Layers[i].ID
		}
		for j, p := range column {
			s.Spheres = append(s.Spheres, Sphere{
				ID:       fmt.Sprintf("%s/%d", id, j),
				Layer:    i,
				Index:    j,
				Position: p,
				Radius:   opts.NeuronRadius,
				Color:    opts.NeuronColor,
			})
		}
		if i < len(a.Layers) {
			top := l.NeuronSpacing
			if len(column) > 0 {
				top += column[len(column)-1].Y()
			}
			s.Labels = append(s.Labels, Label{
				Layer:    i,
				Text:     a.Layers[i].Label(i),
				Position: layout.Vec3{float64(i) * l.LayerSpacing, top, 0},
			})
		}
	}

	for k, e := range l.Edges {
		wt := weights.Clamp(w.Weight(e.Layer, e.From, e.To))
		s.Lines[k] = Line{
			Layer:  e.Layer,
			From:   e.From,
			To:     e.To,
			Start:  e.Start,
			End:    e.End,
			Weight: wt,
			Color:  weights.Color(wt),
		}
	}
	return s
}

// Flares returns the four lens-flare lights placed on alternating corners
// of a cube with half-size d.
func Flares(d float64) []PointLight {
	corners := []layout.Vec3{{d, d, d}, {-d, -d, d}, {d, -d, -d}, {-d, d, -d}}
	out := make([]PointLight, len(corners))
	for i, c := range corners {
		out[i] = PointLight{Position: c, Intensity: 10000.5, Distance: 2000}
	}
	return out
}
