package io

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/errors"
)

func read(t *testing.T, s string, opts ...ReadOption) *Network {
	t.Helper()
	n, err := ReadJSON(strings.NewReader(s), opts...)
	if err != nil {
		t.Fatalf("ReadJSON(%s) error: %v", s, err)
	}
	return n
}

func TestReadJSONShapes(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		shape  Shape
		counts []int
		names  []string
		title  string
	}{
		{
			name:   "simple",
			input:  `{"layers": [3, 5, 2]}`,
			shape:  ShapeSimple,
			counts: []int{3, 5, 2},
			names:  []string{"Layer 1", "Layer 2", "Layer 3"},
		},
		{
			name:   "simple with names",
			input:  `{"title": "xor", "layers": [2, 3, 1], "layerNames": ["in", "", "out"]}`,
			shape:  ShapeSimple,
			counts: []int{2, 3, 1},
			names:  []string{"in", "Layer 2", "out"},
			title:  "xor",
		},
		{
			name:   "extended",
			input:  `{"layers": [{"neurons": 4, "activation": "relu"}, {"neuronCount": 2, "name": "out"}]}`,
			shape:  ShapeExtended,
			counts: []int{4, 2},
			names:  []string{"Layer 1", "out"},
		},
		{
			name:   "bare counts",
			input:  ` [1, 2] `,
			shape:  ShapeArray,
			counts: []int{1, 2},
			names:  []string{"Layer 1", "Layer 2"},
		},
		{
			name:   "bare descriptors",
			input:  `[{"neurons": 3}, {"neurons": 1, "kernel": 3}]`,
			shape:  ShapeArray,
			counts: []int{3, 1},
			names:  []string{"Layer 1", "Layer 2"},
		},
		{
			name:   "dump",
			input:  `{"layers": [2, 1], "weights": [[[0.1], [0.9]]], "biases": [[0, 0], [0.5]]}`,
			shape:  ShapeDump,
			counts: []int{2, 1},
			names:  []string{"Layer 1", "Layer 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := read(t, tt.input)
			if n.Shape != tt.shape {
				t.Errorf("Shape = %s, want %s", n.Shape, tt.shape)
			}
			if diff := cmp.Diff(tt.counts, n.Arch.Counts()); diff != "" {
				t.Errorf("counts (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.names, n.Arch.Names()); diff != "" {
				t.Errorf("names (-want +got):\n%s", diff)
			}
			if n.Arch.Title != tt.title {
				t.Errorf("Title = %q, want %q", n.Arch.Title, tt.title)
			}
			for i, l := range n.Arch.Layers {
				if l.ID == "" {
					t.Errorf("layer %d has no ID", i)
				}
			}
		})
	}
}

func TestReadJSONDumpWeights(t *testing.T) {
	n := read(t, `{"layers": [2, 1], "weights": [[[0.1], [0.9]]], "biases": [[0, 0], [0.5]]}`)
	if n.Weights == nil {
		t.Fatal("Weights = nil")
	}
	if got := n.Weights.Weight(0, 1, 0); got != 0.9 {
		t.Errorf("Weight(0,1,0) = %v, want 0.9", got)
	}
	if diff := cmp.Diff([][]float64{{0, 0}, {0.5}}, n.Biases); diff != "" {
		t.Errorf("biases (-want +got):\n%s", diff)
	}
}

func TestReadJSONErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  errors.Code
	}{
		{"empty", "  ", errors.ErrCodeInvalidFormat},
		{"malformed", `{"layers": [3,`, errors.ErrCodeInvalidFormat},
		{"scalar", `42`, errors.ErrCodeInvalidFormat},
		{"missing layers", `{"title": "x"}`, errors.ErrCodeInvalidFormat},
		{"layers not array", `{"layers": "3,5"}`, errors.ErrCodeInvalidFormat},
		{"empty layers", `{"layers": []}`, errors.ErrCodeInvalidFormat},
		{"zero count", `{"layers": [3, 0]}`, errors.ErrCodeInvalidFormat},
		{"negative count", `[-1]`, errors.ErrCodeInvalidFormat},
		{"fractional count", `{"layers": [2.5]}`, errors.ErrCodeInvalidFormat},
		{"string count", `{"layers": ["3"]}`, errors.ErrCodeInvalidFormat},
		{"names mismatch", `{"layers": [1, 2], "layerNames": ["a"]}`, errors.ErrCodeInvalidFormat},
		{"descriptor without count", `[{"name": "a"}]`, errors.ErrCodeInvalidFormat},
		{"bad activation", `[{"neurons": 1, "activation": "gelu"}]`, errors.ErrCodeInvalidLayer},
		{"weights shape", `{"layers": [2, 1], "weights": [[[0.1, 0.2]]]}`, errors.ErrCodeInvalidFormat},
		{"ragged weights", `{"layers": [2, 1], "weights": [[[0.1], [0.2, 0.3]]]}`, errors.ErrCodeInvalidFormat},
		{"biases length", `{"layers": [2, 1], "biases": [[1]]}`, errors.ErrCodeInvalidFormat},
		{"over capacity", `[200, 51]`, errors.ErrCodeCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.input))
			if !errors.Is(err, tt.code) {
				t.Errorf("ReadJSON() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestReadJSONMaxNeurons(t *testing.T) {
	if _, err := ReadJSON(strings.NewReader(`[5, 6]`), WithMaxNeurons(10)); !errors.Is(err, errors.ErrCodeCapacity) {
		t.Errorf("error = %v, want CAPACITY_EXCEEDED", err)
	}
	n := read(t, `[200, 51]`, WithMaxNeurons(300))
	if n.Arch.MaxNeurons() != 300 {
		t.Errorf("MaxNeurons() = %d, want 300", n.Arch.MaxNeurons())
	}
}

func TestRoundTripExtended(t *testing.T) {
	a := arch.New(3, 5, 2)
	a.Title = "demo"
	_ = a.Rename(0, "input")
	_ = a.Update(1, func(l *arch.Layer) {
		l.Activation = arch.ActivationTanh
		l.Filter = 32
		l.Kernel = 3
		l.Regularization = arch.Regularization{Type: arch.RegularizationL2, Value: 0.01}
		l.BiasInitializer = arch.BiasHe
		l.SkipConnections = [2]string{"input", ""}
	})

	var buf bytes.Buffer
	if err := WriteJSON(&Network{Arch: a}, Extended, &buf); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}
	n := read(t, buf.String())
	if !a.Equal(n.Arch) {
		t.Errorf("round trip mismatch:\n%s", cmp.Diff(a.Layers, n.Arch.Layers))
	}
	if n.Shape != ShapeExtended {
		t.Errorf("Shape = %s, want extended", n.Shape)
	}
}

func TestRoundTripSimple(t *testing.T) {
	a := arch.New(4, 1, 7)
	a.Title = "simple"
	_ = a.Rename(2, "out")

	data, err := Marshal(&Network{Arch: a}, Simple)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if !strings.Contains(string(data), `"layerNames"`) {
		t.Errorf("names not exported:\n%s", data)
	}
	n := read(t, string(data))
	if diff := cmp.Diff(a.Counts(), n.Arch.Counts()); diff != "" {
		t.Errorf("counts (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(a.Names(), n.Arch.Names()); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
	if n.Arch.Title != a.Title {
		t.Errorf("Title = %q, want %q", n.Arch.Title, a.Title)
	}
}

func TestMarshalSimpleOmitsEmptyNames(t *testing.T) {
	data, err := Marshal(&Network{Arch: arch.New(3, 5, 2)}, Simple)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want := "{\n  \"layers\": [\n    3,\n    5,\n    2\n  ]\n}"
	if string(data) != want {
		t.Errorf("Marshal() =\n%s\nwant\n%s", data, want)
	}
}

func TestRoundTripDump(t *testing.T) {
	in := `{"layers": [2, 1], "weights": [[[0.25], [0.75]]], "biases": [[0.1, 0.2], [0.3]]}`
	n := read(t, in)
	data, err := Marshal(n, Simple)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	back := read(t, string(data))
	if diff := cmp.Diff(n.Weights.Raw(), back.Weights.Raw()); diff != "" {
		t.Errorf("weights (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(n.Biases, back.Biases); diff != "" {
		t.Errorf("biases (-want +got):\n%s", diff)
	}
}

func TestCanonicalStable(t *testing.T) {
	a := arch.New(1, 2)
	b := a.Clone()
	ca, _ := Canonical(a)
	cb, _ := Canonical(b)
	if !bytes.Equal(ca, cb) {
		t.Error("equal architectures gave different canonical bytes")
	}
	_ = b.SetNeurons(0, 3)
	cb, _ = Canonical(b)
	if bytes.Equal(ca, cb) {
		t.Error("different architectures gave equal canonical bytes")
	}
}

func TestParseVariant(t *testing.T) {
	for in, want := range map[string]Variant{"": Simple, "simple": Simple, "extended": Extended} {
		got, err := ParseVariant(in)
		if err != nil || got != want {
			t.Errorf("ParseVariant(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseVariant("yaml"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ParseVariant(yaml) error = %v", err)
	}
	if Extended.Filename() != "model-architecture.json" || Simple.Filename() != "network.json" {
		t.Error("unexpected default filenames")
	}
}

func TestExportImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), SimpleFilename)
	a := arch.Default()
	if err := ExportJSON(&Network{Arch: a}, Extended, path); err != nil {
		t.Fatalf("ExportJSON() error: %v", err)
	}
	n, err := ImportJSON(path)
	if err != nil {
		t.Fatalf("ImportJSON() error: %v", err)
	}
	if !a.Equal(n.Arch) {
		t.Error("file round trip mismatch")
	}

	if _, err := ImportJSON(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("ImportJSON(missing) succeeded")
	}
}
