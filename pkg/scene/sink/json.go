package sink

import (
	"encoding/json"

	"github.com/matzehuels/layerviz/pkg/scene"
)

// JSONOption configures [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	compact   bool
	skipLines bool
}

// WithCompactJSON drops indentation, for transport rather than reading.
func WithCompactJSON() JSONOption { return func(r *jsonRenderer) { r.compact = true } }

// WithoutLines omits edge lines, for clients that only place neurons.
func WithoutLines() JSONOption { return func(r *jsonRenderer) { r.skipLines = true } }

// RenderJSON encodes the scene. The output round-trips through
// json.Unmarshal into a scene.Scene.
func RenderJSON(s scene.Scene, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}
	if r.skipLines {
		s.Lines = []scene.Line{}
	}
	if r.compact {
		return json.Marshal(s)
	}
	return json.MarshalIndent(s, "", "  ")
}
