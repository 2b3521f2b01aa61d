package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/layout"
	"github.com/matzehuels/layerviz/pkg/observability"
	"github.com/matzehuels/layerviz/pkg/scene"
)

// Layout resolves neuron positions for a.
func (r *Runner) Layout(ctx context.Context, a *arch.Architecture, opts Options) (layout.Layout, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return layout.Layout{}, err
	}
	if err := a.Validate(); err != nil {
		return layout.Layout{}, err
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, a.Len(), a.TotalNeurons())
	start := time.Now()
	l := layout.Resolve(a.Counts(),
		layout.WithLayerSpacing(opts.LayerSpacing),
		layout.WithNeuronSpacing(opts.NeuronSpacing))
	hooks.OnLayoutComplete(ctx, a.Len(), time.Since(start), nil)

	r.Logger.Debug("resolved layout", "layers", a.Len(), "neurons", l.NeuronCount(), "edges", len(l.Edges))
	return l, nil
}

// Scene resolves the layout and assembles the scene for a.
func (r *Runner) Scene(ctx context.Context, a *arch.Architecture, opts Options) (scene.Scene, layout.Layout, error) {
	l, err := r.Layout(ctx, a, opts)
	if err != nil {
		return scene.Scene{}, layout.Layout{}, err
	}
	return scene.Build(a, l, opts.Provider(), opts.Scene), l, nil
}
