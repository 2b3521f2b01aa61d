package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/errors"
)

// Variant selects the export layout.
type Variant string

// Export variants.
const (
	// Simple writes neuron counts plus optional names and title.
	Simple Variant = "simple"
	// Extended writes one descriptor per layer with every hyperparameter.
	Extended Variant = "extended"
)

// Default download names per variant.
const (
	SimpleFilename   = "network.json"
	ExtendedFilename = "model-architecture.json"
)

// ParseVariant converts a string to a Variant. The empty string means
// Simple.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", Simple:
		return Simple, nil
	case Extended:
		return Extended, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown export variant %q (must be simple or extended)", s)
}

// Filename returns the default download name for the variant.
func (v Variant) Filename() string {
	if v == Extended {
		return ExtendedFilename
	}
	return SimpleFilename
}

type simpleDoc struct {
	Title      string        `json:"title,omitempty"`
	Layers     []int         `json:"layers"`
	LayerNames []string      `json:"layerNames,omitempty"`
	Weights    [][][]float64 `json:"weights,omitempty"`
	Biases     [][]float64   `json:"biases,omitempty"`
}

type extendedDoc struct {
	Title   string        `json:"title,omitempty"`
	Layers  []arch.Layer  `json:"layers"`
	Weights [][][]float64 `json:"weights,omitempty"`
	Biases  [][]float64   `json:"biases,omitempty"`
}

// Marshal encodes n in the given variant as indented JSON. Weights and
// biases are included when present.
func Marshal(n *Network, v Variant) ([]byte, error) {
	doc, err := exportDoc(n, v)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Canonical returns the compact extended encoding of a. Equal
// architectures produce identical bytes, which makes it suitable for
// content hashing.
func Canonical(a *arch.Architecture) ([]byte, error) {
	return json.Marshal(extendedDoc{Title: a.Title, Layers: a.Layers})
}

func exportDoc(n *Network, v Variant) (any, error) {
	var w [][][]float64
	if n.Weights != nil {
		w = n.Weights.Raw()
	}
	switch v {
	case Simple, "":
		doc := simpleDoc{Title: n.Arch.Title, Layers: n.Arch.Counts(), Weights: w, Biases: n.Biases}
		for i, l := range n.Arch.Layers {
			if l.Name == "" {
				continue
			}
			if doc.LayerNames == nil {
				doc.LayerNames = make([]string, len(n.Arch.Layers))
			}
			doc.LayerNames[i] = l.Name
		}
		return doc, nil
	case Extended:
		return extendedDoc{Title: n.Arch.Title, Layers: n.Arch.Layers, Weights: w, Biases: n.Biases}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown export variant %q", v)
}

// WriteJSON encodes n in the given variant and writes it to w.
func WriteJSON(n *Network, v Variant, w io.Writer) error {
	data, err := Marshal(n, v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// ExportJSON writes n to the file at path, replacing any existing file.
func ExportJSON(n *Network, v Variant, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(n, v, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
