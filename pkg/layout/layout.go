package layout

import "math"

// Default spacings, in scene units.
const (
	DefaultLayerSpacing  = 4.0
	DefaultNeuronSpacing = 1.5
)

// Vec3 is a point in scene space.
type Vec3 [3]float64

// X returns the x component.
func (v Vec3) X() float64 { return v[0] }

// Y returns the y component.
func (v Vec3) Y() float64 { return v[1] }

// Z returns the z component.
func (v Vec3) Z() float64 { return v[2] }

// Edge connects neuron From in layer Layer to neuron To in layer Layer+1.
type Edge struct {
	Layer int  `json:"layer"`
	From  int  `json:"from"`
	To    int  `json:"to"`
	Start Vec3 `json:"start"`
	End   Vec3 `json:"end"`
}

// Layout is the resolved geometry of a network.
type Layout struct {
	LayerSpacing  float64  `json:"layer_spacing"`
	NeuronSpacing float64  `json:"neuron_spacing"`
	Layers        [][]Vec3 `json:"layers"`
	Edges         []Edge   `json:"edges"`
	// Center is the middle neuron of the middle layer, used as orbit target.
	Center Vec3 `json:"center"`
}

// Option configures [Resolve].
type Option func(*config)

type config struct {
	layerSpacing  float64
	neuronSpacing float64
}

// WithLayerSpacing sets the distance between consecutive layers.
func WithLayerSpacing(d float64) Option { return func(c *config) { c.layerSpacing = d } }

// WithNeuronSpacing sets the distance between neighbouring neurons.
func WithNeuronSpacing(d float64) Option { return func(c *config) { c.neuronSpacing = d } }

// Resolve maps neuron counts to positions. Non-positive counts yield an
// empty layer; rejecting them is the caller's job.
func Resolve(counts []int, opts ...Option) Layout {
	cfg := config{layerSpacing: DefaultLayerSpacing, neuronSpacing: DefaultNeuronSpacing}
	for _, opt := range opts {
		opt(&cfg)
	}

	l := Layout{
		LayerSpacing:  cfg.layerSpacing,
		NeuronSpacing: cfg.neuronSpacing,
		Layers:        make([][]Vec3, len(counts)),
	}
	for i, n := range counts {
		l.Layers[i] = column(float64(i)*cfg.layerSpacing, max(n, 0), cfg.neuronSpacing)
	}

	l.Edges = make([]Edge, 0, EdgeCount(counts))
	for i := 0; i+1 < len(l.Layers); i++ {
		for from, start := range l.Layers[i] {
			for to, end := range l.Layers[i+1] {
				l.Edges = append(l.Edges, Edge{Layer: i, From: from, To: to, Start: start, End: end})
			}
		}
	}

	if len(l.Layers) > 0 {
		if mid := l.Layers[len(l.Layers)/2]; len(mid) > 0 {
			l.Center = mid[len(mid)/2]
		}
	}
	return l
}

// column places n neurons at x, centred on y = 0, ascending with index.
func column(x float64, n int, spacing float64) []Vec3 {
	out := make([]Vec3, n)
	offset := float64(n-1) * spacing / 2
	for j := range out {
		out[j] = Vec3{x, float64(j)*spacing - offset, 0}
	}
	return out
}

// EdgeCount returns the number of edges a full adjacent-layer connection
// produces for counts.
func EdgeCount(counts []int) int {
	total := 0
	for i := 0; i+1 < len(counts); i++ {
		total += max(counts[i], 0) * max(counts[i+1], 0)
	}
	return total
}

// NeuronCount returns the number of positioned neurons.
func (l *Layout) NeuronCount() int {
	n := 0
	for _, layer := range l.Layers {
		n += len(layer)
	}
	return n
}

// Bounds returns the minimum and maximum corners of all neuron positions.
// An empty layout reports the origin for both.
func (l *Layout) Bounds() (lo, hi Vec3) {
	first := true
	for _, layer := range l.Layers {
		for _, p := range layer {
			if first {
				lo, hi, first = p, p, false
				continue
			}
			for k := range p {
				lo[k] = math.Min(lo[k], p[k])
				hi[k] = math.Max(hi[k], p[k])
			}
		}
	}
	return lo, hi
}
