package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/errors"
	"github.com/matzehuels/layerviz/pkg/weights"
)

// Shape identifies which file layout an import was read from.
type Shape string

// Recognised input shapes.
const (
	ShapeSimple   Shape = "simple"
	ShapeExtended Shape = "extended"
	ShapeArray    Shape = "array"
	ShapeDump     Shape = "dump"
)

// Network is a decoded file: the architecture plus any weights and biases
// that came with it.
type Network struct {
	Arch    *arch.Architecture
	Weights *weights.Tensor
	Biases  [][]float64
	Shape   Shape
}

// ReadOption configures [ReadJSON].
type ReadOption func(*readConfig)

type readConfig struct {
	maxNeurons int
	fallback   weights.Provider
}

// WithMaxNeurons sets the ceiling the imported architecture is validated
// against and carries it on the result.
func WithMaxNeurons(n int) ReadOption { return func(c *readConfig) { c.maxNeurons = n } }

// WithFallback sets the provider used for edges a weight dump does not
// cover. Without it the fallback stays nil and the renderer fills in its
// configured provider.
func WithFallback(p weights.Provider) ReadOption { return func(c *readConfig) { c.fallback = p } }

type document struct {
	Title      string          `json:"title"`
	Layers     json.RawMessage `json:"layers"`
	LayerNames []string        `json:"layerNames"`
	Weights    [][][]float64   `json:"weights"`
	Biases     [][]float64     `json:"biases"`
}

// descriptor is an extended layer entry. neuronCount is an older spelling
// of neurons.
type descriptor struct {
	arch.Layer
	NeuronCount int `json:"neuronCount"`
}

// ReadJSON decodes a network from r in any accepted shape and validates
// it. ReadJSON does not close r.
func ReadJSON(r io.Reader, opts ...ReadOption) (*Network, error) {
	var cfg readConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "file is empty")
	}

	var n *Network
	switch data[0] {
	case '[':
		layers, err := decodeLayers(data)
		if err != nil {
			return nil, err
		}
		n = &Network{Arch: arch.FromLayers("", layers), Shape: ShapeArray}
	case '{':
		n, err = decodeDocument(data, cfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "expected a JSON object or array")
	}

	n.Arch.SetMaxNeurons(cfg.maxNeurons)
	if err := n.Arch.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeDocument(data []byte, cfg readConfig) (*Network, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid JSON")
	}
	if len(doc.Layers) == 0 || string(doc.Layers) == "null" {
		return nil, errors.New(errors.ErrCodeInvalidFormat, `missing "layers" array`)
	}
	layers, err := decodeLayers(doc.Layers)
	if err != nil {
		return nil, err
	}

	if doc.LayerNames != nil {
		if len(doc.LayerNames) != len(layers) {
			return nil, errors.New(errors.ErrCodeInvalidFormat,
				"layerNames has %d entries but there are %d layers", len(doc.LayerNames), len(layers))
		}
		for i, name := range doc.LayerNames {
			layers[i].Name = name
		}
	}

	n := &Network{Arch: arch.FromLayers(doc.Title, layers), Shape: ShapeSimple}
	if isExtended(doc.Layers) {
		n.Shape = ShapeExtended
	}

	if doc.Weights != nil {
		t, err := weights.NewTensor(doc.Weights, cfg.fallback)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid weights")
		}
		if err := t.Fits(n.Arch.Counts()); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "weights do not match layers")
		}
		n.Weights = t
		n.Shape = ShapeDump
	}
	if doc.Biases != nil {
		if len(doc.Biases) > len(layers) {
			return nil, errors.New(errors.ErrCodeInvalidFormat,
				"biases given for %d layers but there are %d", len(doc.Biases), len(layers))
		}
		for i, b := range doc.Biases {
			if len(b) != 0 && len(b) != layers[i].Neurons {
				return nil, errors.New(errors.ErrCodeInvalidFormat,
					"layer %d has %d biases for %d neurons", i+1, len(b), layers[i].Neurons)
			}
		}
		n.Biases = doc.Biases
		n.Shape = ShapeDump
	}
	return n, nil
}

// decodeLayers reads a JSON array whose elements are neuron counts or
// layer descriptors.
func decodeLayers(data []byte) ([]arch.Layer, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, `"layers" must be an array`)
	}
	if len(raw) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "network needs at least one layer")
	}

	layers := make([]arch.Layer, len(raw))
	for i, elem := range raw {
		elem = bytes.TrimSpace(elem)
		if len(elem) > 0 && elem[0] == '{' {
			l, err := decodeDescriptor(elem)
			if err != nil {
				return nil, errors.Wrap(errors.GetCode(err), err, "layer %d", i+1)
			}
			layers[i] = l
			continue
		}
		count, err := decodeCount(elem)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "layer %d", i+1)
		}
		layers[i] = arch.Layer{Neurons: count}
	}
	return layers, nil
}

func decodeCount(elem []byte) (int, error) {
	var num json.Number
	if len(elem) > 0 && elem[0] == '"' {
		return 0, fmt.Errorf("neuron count must be a number, got %s", elem)
	}
	if err := json.Unmarshal(elem, &num); err != nil {
		return 0, fmt.Errorf("neuron count must be a number, got %s", elem)
	}
	n, err := strconv.Atoi(num.String())
	if err != nil {
		return 0, fmt.Errorf("neuron count must be an integer, got %s", num)
	}
	if n < 1 {
		return 0, fmt.Errorf("neuron count must be positive, got %d", n)
	}
	return n, nil
}

func decodeDescriptor(elem []byte) (arch.Layer, error) {
	var d descriptor
	if err := json.Unmarshal(elem, &d); err != nil {
		return arch.Layer{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid layer descriptor")
	}
	if d.Neurons == 0 {
		d.Neurons = d.NeuronCount
	}
	if d.Neurons < 1 {
		return arch.Layer{}, errors.New(errors.ErrCodeInvalidFormat, "neuron count must be positive, got %d", d.Neurons)
	}
	if err := d.Layer.Validate(); err != nil {
		return arch.Layer{}, err
	}
	return d.Layer, nil
}

func isExtended(layers json.RawMessage) bool {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(bytes.TrimSpace(layers), []byte("[")))
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// ImportJSON reads the network file at path.
func ImportJSON(path string, opts ...ReadOption) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f, opts...)
}
