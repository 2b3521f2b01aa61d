package arch

import (
	"slices"

	"github.com/matzehuels/layerviz/pkg/errors"
)

// DefaultMaxNeurons is the default ceiling on total neurons across all layers.
const DefaultMaxNeurons = 250

// DefaultCounts is the network every new project starts with.
var DefaultCounts = []int{3, 5, 2}

// Architecture is an ordered sequence of layers. Layer index 0 renders
// leftmost.
type Architecture struct {
	Title  string  `json:"title,omitempty" bson:"title,omitempty"`
	Layers []Layer `json:"layers" bson:"layers"`

	maxNeurons int
}

// New builds an architecture from neuron counts, assigning fresh IDs.
// Counts are not validated; call [Architecture.Validate] when they come
// from outside.
func New(counts ...int) *Architecture {
	a := &Architecture{Layers: make([]Layer, len(counts))}
	for i, n := range counts {
		a.Layers[i] = NewLayer(n)
	}
	return a
}

// Default returns the default three-layer network.
func Default() *Architecture {
	return New(DefaultCounts...)
}

// FromLayers wraps existing layer records, filling in missing IDs.
func FromLayers(title string, layers []Layer) *Architecture {
	a := &Architecture{Title: title, Layers: slices.Clone(layers)}
	for i := range a.Layers {
		if a.Layers[i].ID == "" {
			a.Layers[i].ID = NewID()
		}
	}
	return a
}

// SetMaxNeurons sets the neuron ceiling. Values <= 0 restore the default.
func (a *Architecture) SetMaxNeurons(n int) {
	a.maxNeurons = n
}

// MaxNeurons returns the effective neuron ceiling.
func (a *Architecture) MaxNeurons() int {
	if a.maxNeurons <= 0 {
		return DefaultMaxNeurons
	}
	return a.maxNeurons
}

// Len returns the number of layers.
func (a *Architecture) Len() int { return len(a.Layers) }

// Counts returns the neuron count of every layer in order.
func (a *Architecture) Counts() []int {
	counts := make([]int, len(a.Layers))
	for i, l := range a.Layers {
		counts[i] = l.Neurons
	}
	return counts
}

// Names returns the display label of every layer in order.
func (a *Architecture) Names() []string {
	names := make([]string, len(a.Layers))
	for i := range a.Layers {
		names[i] = a.Layers[i].Label(i)
	}
	return names
}

// TotalNeurons sums neuron counts across all layers.
func (a *Architecture) TotalNeurons() int {
	total := 0
	for _, l := range a.Layers {
		total += l.Neurons
	}
	return total
}

// Layer returns a pointer to layer i, or an INVALID_INDEX error.
func (a *Architecture) Layer(i int) (*Layer, error) {
	if err := errors.ValidateIndex(i, len(a.Layers)); err != nil {
		return nil, err
	}
	return &a.Layers[i], nil
}

// Index returns the position of the layer with the given ID, or -1.
func (a *Architecture) Index(id string) int {
	return slices.IndexFunc(a.Layers, func(l Layer) bool { return l.ID == id })
}

// Clone returns a deep copy that shares no slices with a.
func (a *Architecture) Clone() *Architecture {
	return &Architecture{
		Title:      a.Title,
		Layers:     slices.Clone(a.Layers),
		maxNeurons: a.maxNeurons,
	}
}

// Equal reports whether a and b describe the same layers in the same order
// with the same title. The ceiling is policy and not compared.
func (a *Architecture) Equal(b *Architecture) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Title == b.Title && slices.Equal(a.Layers, b.Layers)
}

// Validate checks every architecture invariant: at least one layer, each
// layer valid, unique IDs, and the total within the ceiling.
func (a *Architecture) Validate() error {
	if len(a.Layers) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "architecture needs at least one layer")
	}
	if err := errors.ValidateName(a.Title); err != nil {
		return err
	}
	seen := make(map[string]bool, len(a.Layers))
	for i := range a.Layers {
		l := &a.Layers[i]
		if err := l.Validate(); err != nil {
			return errors.Wrap(errors.GetCode(err), err, "layer %d", i+1)
		}
		if l.ID != "" {
			if seen[l.ID] {
				return errors.New(errors.ErrCodeInvalidLayer, "duplicate layer id %q", l.ID)
			}
			seen[l.ID] = true
		}
	}
	if total, limit := a.TotalNeurons(), a.MaxNeurons(); total > limit {
		return errors.New(errors.ErrCodeCapacity, "total neurons %d exceeds limit of %d", total, limit)
	}
	return nil
}
