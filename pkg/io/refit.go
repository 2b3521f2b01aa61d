package io

import (
	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/weights"
)

// Refit moves n onto next, an edited copy of n.Arch, and carries the
// supplied weights and biases along by layer ID. A bias row follows its
// layer while the neuron count is unchanged. A weight matrix follows its
// pair of layers while both keep their counts and stay adjacent in the
// same order. Everything else is dropped. Refit reports whether anything
// was dropped.
//
// The result never shares slices with the old weights or biases.
func (n *Network) Refit(next *arch.Architecture) bool {
	prev := n.Arch
	n.Arch = next
	if n.Weights == nil && n.Biases == nil {
		return false
	}

	// kept[i] is the old index of layer i, or -1 when it is new or resized.
	kept := make([]int, next.Len())
	for i, l := range next.Layers {
		kept[i] = -1
		if j := prev.Index(l.ID); j >= 0 && prev.Layers[j].Neurons == l.Neurons {
			kept[i] = j
		}
	}

	dropped := false
	if n.Biases != nil {
		var biases [][]float64
		carried := 0
		for i, j := range kept {
			if j < 0 || j >= len(n.Biases) || len(n.Biases[j]) == 0 {
				continue
			}
			for len(biases) < i {
				biases = append(biases, nil)
			}
			biases = append(biases, append([]float64(nil), n.Biases[j]...))
			carried++
		}
		dropped = carried < nonEmpty(n.Biases)
		n.Biases = biases
	}

	if n.Weights != nil {
		var layers []*mat.Dense
		carried := 0
		for i := 0; i+1 < len(kept); i++ {
			j := kept[i]
			if j < 0 || kept[i+1] != j+1 || j >= len(n.Weights.Layers) || n.Weights.Layers[j] == nil {
				continue
			}
			for len(layers) < i {
				layers = append(layers, nil)
			}
			layers = append(layers, mat.DenseCopyOf(n.Weights.Layers[j]))
			carried++
		}
		total := 0
		for _, m := range n.Weights.Layers {
			if m != nil {
				total++
			}
		}
		dropped = dropped || carried < total
		if layers == nil {
			n.Weights = nil
		} else {
			n.Weights = &weights.Tensor{Layers: layers, Fallback: n.Weights.Fallback}
		}
	}
	return dropped
}

func nonEmpty(rows [][]float64) int {
	c := 0
	for _, r := range rows {
		if len(r) > 0 {
			c++
		}
	}
	return c
}
