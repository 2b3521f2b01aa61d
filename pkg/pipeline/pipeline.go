// Package pipeline runs the layout → scene → render pipeline shared by the
// CLI and the HTTP server.
//
// # Stages
//
//  1. Parse: decode a network file into an architecture (and optional weights)
//  2. Layout: resolve neuron positions
//  3. Scene: assemble spheres, coloured edges, camera and lights
//  4. Render: encode the scene in one or more formats (json, svg, dot, png)
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Render(ctx, a, pipeline.Options{
//	    Formats: []string{"svg", "json"},
//	})
//	if err != nil {
//	    return err
//	}
//	svg := result.Artifacts["svg"]
//
// Rendered artifacts are cached under keys derived from the canonical
// architecture and every option that affects the output. Random weights
// are never cached since the same inputs give a different picture each
// time.
package pipeline

import (
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/layerviz/pkg/cache"
	"github.com/matzehuels/layerviz/pkg/errors"
	"github.com/matzehuels/layerviz/pkg/layout"
	"github.com/matzehuels/layerviz/pkg/scene"
	"github.com/matzehuels/layerviz/pkg/scene/sink"
	"github.com/matzehuels/layerviz/pkg/weights"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultWidth is the default SVG width in pixels.
	DefaultWidth = sink.DefaultWidth

	// DefaultHeight is the default SVG height in pixels.
	DefaultHeight = sink.DefaultHeight

	// DefaultTTL is how long rendered artifacts stay cached.
	DefaultTTL = 24 * time.Hour
)

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatPNG  = "png"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatSVG:  true,
	FormatDOT:  true,
	FormatPNG:  true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
type Options struct {
	// Layout options
	LayerSpacing  float64 `json:"layer_spacing,omitempty"`
	NeuronSpacing float64 `json:"neuron_spacing,omitempty"`

	// Scene options
	Scene      scene.Options `json:"-"`
	WeightMode string        `json:"weight_mode,omitempty"`
	Seed       uint64        `json:"seed,omitempty"`

	// Weights, when set, colour edges with supplied values. Edges the
	// tensor does not cover use its fallback.
	Weights *weights.Tensor `json:"-"`

	// Render options
	Formats    []string `json:"formats,omitempty"`
	Width      float64  `json:"width,omitempty"`
	Height     float64  `json:"height,omitempty"`
	Labels     bool     `json:"labels,omitempty"`
	Detailed   bool     `json:"detailed,omitempty"`
	Background string   `json:"background,omitempty"`

	// Refresh bypasses the artifact cache for reads; results are still
	// written.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Layout    layout.Layout
	Scene     scene.Scene
	SceneKey  string
	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Layers     int
	Neurons    int
	Edges      int
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache use for a run.
type CacheInfo struct {
	Cacheable bool // Whether the run was eligible for caching
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: json, svg, dot, png)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// SetLayoutDefaults sets default values for layout and scene assembly.
func (o *Options) SetLayoutDefaults() {
	if o.LayerSpacing == 0 {
		o.LayerSpacing = layout.DefaultLayerSpacing
	}
	if o.NeuronSpacing == 0 {
		o.NeuronSpacing = layout.DefaultNeuronSpacing
	}
	if o.WeightMode == "" {
		o.WeightMode = string(weights.ModeStable)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
}

// ValidateForLayout validates and sets defaults for layout and scene.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if o.LayerSpacing < 0 || o.NeuronSpacing < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "spacing must not be negative")
	}
	_, err := weights.ParseMode(o.WeightMode)
	return err
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	o.SetRenderDefaults()
	if o.Width < 0 || o.Height < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "size must not be negative, got %gx%g", o.Width, o.Height)
	}
	return ValidateFormats(o.Formats)
}

// Mode returns the parsed weight mode.
func (o *Options) Mode() weights.Mode {
	m, _ := weights.ParseMode(o.WeightMode)
	return m
}

// Cacheable reports whether identical inputs always give identical
// artifacts.
func (o *Options) Cacheable() bool {
	return o.Mode().Deterministic()
}

// Provider returns the edge weight source for the run.
func (o *Options) Provider() weights.Provider {
	base := weights.New(o.Mode(), o.Seed, o.Scene.Epoch)
	if o.Weights == nil {
		return base
	}
	t := *o.Weights
	if t.Fallback == nil {
		t.Fallback = base
	}
	return &t
}

// SceneKeyOpts returns cache key options for the assembled scene.
func (o *Options) SceneKeyOpts() cache.SceneKeyOpts {
	k := cache.SceneKeyOpts{
		LayerSpacing:   o.LayerSpacing,
		NeuronSpacing:  o.NeuronSpacing,
		NeuronRadius:   o.Scene.NeuronRadius,
		NeuronColor:    o.Scene.NeuronColor,
		CameraDistance: o.Scene.CameraDistance,
		FOV:            o.Scene.FOV,
		WeightMode:     o.WeightMode,
		WeightSeed:     o.Seed,
		Epoch:          o.Scene.Epoch,
	}
	if o.Weights != nil {
		data, _ := json.Marshal(o.Weights.Raw())
		k.WeightsHash = cache.Hash(data)
	}
	return k
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: format, Rotation: o.Scene.Rotation}
	switch format {
	case FormatSVG:
		k.Width, k.Height, k.Labels, k.Background = o.Width, o.Height, o.Labels, o.Background
	case FormatDOT, FormatPNG:
		k.Detailed = o.Detailed
	}
	return k
}
