// Package weights supplies the scalar weight of every rendered edge and maps
// it to a colour.
//
// A weight is a value in [0,1) used only to pick the edge hue. Three sources
// exist:
//
//   - [Stable]: a deterministic value per edge identity and epoch. Colours
//     hold still across re-renders and change together when the epoch
//     advances (the animation's weight tick).
//   - [Random]: a fresh value on every lookup. Colours change on every
//     recomputation, which is what the browser visualizer did.
//   - [Tensor]: externally supplied weights, one matrix per adjacent layer
//     pair, falling back to another provider for edges it does not cover.
package weights

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"
)

// Mode names a weight source in configuration.
type Mode string

// Supported modes.
const (
	ModeStable Mode = "stable"
	ModeRandom Mode = "random"
)

// ParseMode validates a mode name. Empty selects [ModeStable].
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeStable:
		return ModeStable, nil
	case ModeRandom:
		return ModeRandom, nil
	default:
		return "", fmt.Errorf("invalid weight mode: %q (must be 'stable' or 'random')", s)
	}
}

// Deterministic reports whether lookups repeat for the same edge, which
// makes rendered output cacheable.
func (m Mode) Deterministic() bool { return m != ModeRandom }

// Provider returns the weight of the edge from neuron from in layer to
// neuron to in layer+1. Results are in [0,1).
type Provider interface {
	Weight(layer, from, to int) float64
}

// New returns the provider for mode.
func New(mode Mode, seed, epoch uint64) Provider {
	if mode == ModeRandom {
		return Random{}
	}
	return Stable{Seed: seed, Epoch: epoch}
}

// Stable derives a weight from the edge identity, the seed and the epoch.
type Stable struct {
	Seed  uint64
	Epoch uint64
}

// Weight implements Provider.
func (s Stable) Weight(layer, from, to int) float64 {
	key := uint64(layer)<<42 ^ uint64(from)<<21 ^ uint64(to)
	rng := rand.New(rand.NewPCG(s.Seed^0x9e3779b97f4a7c15*(s.Epoch+1), key))
	return rng.Float64()
}

// Random draws a new uniform value on every call.
type Random struct{}

// Weight implements Provider.
func (Random) Weight(int, int, int) float64 { return rand.Float64() }

// Clamp folds w into [0,1).
func Clamp(w float64) float64 {
	switch {
	case math.IsNaN(w) || w < 0:
		return 0
	case w >= 1:
		return math.Nextafter(1, 0)
	default:
		return w
	}
}

// Color maps a weight to the edge colour: hue w*360°, full saturation,
// half lightness, as "#rrggbb".
func Color(w float64) string {
	return colorful.Hsl(Clamp(w)*360, 1, 0.5).Clamped().Hex()
}
