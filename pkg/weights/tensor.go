package weights

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor serves supplied weights. Layers[i] holds the weights between
// layer i and i+1 with rows indexed by the source neuron and columns by the
// target neuron. A nil matrix or an index outside its shape defers to
// Fallback.
type Tensor struct {
	Layers   []*mat.Dense
	Fallback Provider
}

// NewTensor builds a Tensor from nested slices shaped [layer][from][to].
// Empty layer entries become nil matrices. Ragged rows are rejected.
func NewTensor(w [][][]float64, fallback Provider) (*Tensor, error) {
	t := &Tensor{Layers: make([]*mat.Dense, len(w)), Fallback: fallback}
	for i, rows := range w {
		if len(rows) == 0 || len(rows[0]) == 0 {
			continue
		}
		cols := len(rows[0])
		data := make([]float64, 0, len(rows)*cols)
		for r, row := range rows {
			if len(row) != cols {
				return nil, fmt.Errorf("weights[%d][%d] has %d entries, want %d", i, r, len(row), cols)
			}
			data = append(data, row...)
		}
		t.Layers[i] = mat.NewDense(len(rows), cols, data)
	}
	return t, nil
}

// Weight implements Provider.
func (t *Tensor) Weight(layer, from, to int) float64 {
	if m := t.matrix(layer); m != nil {
		if r, c := m.Dims(); from >= 0 && from < r && to >= 0 && to < c {
			return Clamp(m.At(from, to))
		}
	}
	if t.Fallback == nil {
		return 0
	}
	return t.Fallback.Weight(layer, from, to)
}

// Covers reports whether the edge has a supplied entry.
func (t *Tensor) Covers(layer, from, to int) bool {
	m := t.matrix(layer)
	if m == nil {
		return false
	}
	r, c := m.Dims()
	return from >= 0 && from < r && to >= 0 && to < c
}

// Raw converts the tensor back to nested slices, the inverse of NewTensor.
func (t *Tensor) Raw() [][][]float64 {
	out := make([][][]float64, len(t.Layers))
	for i, m := range t.Layers {
		if m == nil {
			continue
		}
		r, _ := m.Dims()
		out[i] = make([][]float64, r)
		for j := range r {
			out[i][j] = mat.Row(nil, j, m)
		}
	}
	return out
}

// Fits reports whether every matrix matches the adjacent layer sizes in
// counts. Partial tensors (fewer matrices than layer pairs) fit.
func (t *Tensor) Fits(counts []int) error {
	for i, m := range t.Layers {
		if m == nil {
			continue
		}
		if i+1 >= len(counts) {
			return fmt.Errorf("weights given for layer pair %d but network has %d layers", i, len(counts))
		}
		r, c := m.Dims()
		if r != counts[i] || c != counts[i+1] {
			return fmt.Errorf("weights for layer pair %d are %dx%d, want %dx%d", i, r, c, counts[i], counts[i+1])
		}
	}
	return nil
}

func (t *Tensor) matrix(layer int) *mat.Dense {
	if t == nil || layer < 0 || layer >= len(t.Layers) {
		return nil
	}
	return t.Layers[layer]
}
