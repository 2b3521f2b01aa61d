package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/cache"
	netio "github.com/matzehuels/layerviz/pkg/io"
	"github.com/matzehuels/layerviz/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger; multiple
// goroutines can use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		TTL:    DefaultTTL,
	}
}

// Render runs layout, scene assembly and rendering for a, serving
// artifacts from cache when every requested format is present.
func (r *Runner) Render(ctx context.Context, a *arch.Architecture, opts Options) (*Result, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	layoutStart := time.Now()
	s, l, err := r.Scene(ctx, a, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result := &Result{
		Layout: l,
		Scene:  s,
		Stats: Stats{
			Layers:     a.Len(),
			Neurons:    l.NeuronCount(),
			Edges:      len(l.Edges),
			LayoutTime: time.Since(layoutStart),
		},
		CacheInfo: CacheInfo{Cacheable: opts.Cacheable()},
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	renderStart := time.Now()
	artifacts, hit, err := r.renderWithCache(ctx, a, result, opts)
	result.Stats.RenderTime = time.Since(renderStart)
	hooks.OnRenderComplete(ctx, opts.Formats, result.Stats.RenderTime, err)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.CacheInfo.RenderHit = hit

	r.Logger.Debug("rendered outputs",
		"formats", opts.Formats,
		"cached", hit,
		"duration", result.Stats.RenderTime)
	return result, nil
}

func (r *Runner) renderWithCache(ctx context.Context, a *arch.Architecture, result *Result, opts Options) (map[string][]byte, bool, error) {
	if !opts.Cacheable() {
		artifacts, err := RenderScene(ctx, a, result.Scene, opts)
		return artifacts, false, err
	}

	canonical, err := netio.Canonical(a)
	if err != nil {
		return nil, false, fmt.Errorf("serialize architecture for cache key: %w", err)
	}
	result.SceneKey = r.Keyer.SceneKey(cache.Hash(canonical), opts.SceneKeyOpts())

	hooks := observability.Cache()
	if !opts.Refresh {
		artifacts := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(result.SceneKey, opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil {
				r.Logger.Warn("cache read failed", "format", format, "error", err)
			}
			if !hit {
				hooks.OnCacheMiss(ctx, cache.KeyTypeArtifact)
				break
			}
			hooks.OnCacheHit(ctx, cache.KeyTypeArtifact)
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil
		}
	}

	rendered, err := RenderScene(ctx, a, result.Scene, opts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(result.SceneKey, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
			r.Logger.Warn("cache write failed", "format", format, "error", err)
			continue
		}
		hooks.OnCacheSet(ctx, cache.KeyTypeArtifact, len(data))
	}
	return rendered, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
