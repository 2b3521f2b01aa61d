package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/buildinfo"
	"github.com/matzehuels/layerviz/pkg/errors"
	netio "github.com/matzehuels/layerviz/pkg/io"
	"github.com/matzehuels/layerviz/pkg/observability"
	"github.com/matzehuels/layerviz/pkg/pipeline"
)

// =============================================================================
// Registry
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		buildinfo.Info
	}{"ok", buildinfo.Get()})
}

func (s *Server) handleGetArchitecture(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	body := newArchitectureBody(s.arch.Clone())
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handlePutArchitecture(w http.ResponseWriter, r *http.Request) {
	n, err := netio.ReadJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes), netio.WithMaxNeurons(s.maxNeurons))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutate(w, r, http.StatusOK, "import", func(a *arch.Architecture, supplied *netio.Network) error {
		if err := a.Replace(n.Arch); err != nil {
			return err
		}
		*supplied = *n
		return nil
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, http.StatusOK, "reset", func(a *arch.Architecture, supplied *netio.Network) error {
		a.Reset()
		supplied.Weights, supplied.Biases = nil, nil
		return nil
	})
}

func (s *Server) handleAddLayer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		arch.Layer
		Neurons *int `json:"neurons"`
	}
	given, err := decodeBody(r, &body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutate(w, r, http.StatusCreated, "add", func(a *arch.Architecture, _ *netio.Network) error {
		if !given {
			return a.Add()
		}
		l := body.Layer
		l.Neurons = 1
		if body.Neurons != nil {
			l.Neurons = *body.Neurons
		}
		return a.AddLayer(l)
	})
}

// layerPatch holds the fields PATCH may change. Absent fields are kept.
type layerPatch struct {
	Neurons         *int                  `json:"neurons"`
	Name            *string               `json:"name"`
	Filter          *int                  `json:"filter"`
	Kernel          *int                  `json:"kernel"`
	Padding         *int                  `json:"padding"`
	Strides         *int                  `json:"strides"`
	Activation      *arch.Activation      `json:"activation"`
	Regularization  *arch.Regularization  `json:"regularization"`
	BiasInitializer *arch.BiasInitializer `json:"biasInitializer"`
	SkipConnections *[2]string            `json:"skipConnections"`
}

func (p *layerPatch) apply(l *arch.Layer) {
	set := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	set(&l.Filter, p.Filter)
	set(&l.Kernel, p.Kernel)
	set(&l.Padding, p.Padding)
	set(&l.Strides, p.Strides)
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Activation != nil {
		l.Activation = *p.Activation
	}
	if p.Regularization != nil {
		l.Regularization = *p.Regularization
	}
	if p.BiasInitializer != nil {
		l.BiasInitializer = *p.BiasInitializer
	}
	if p.SkipConnections != nil {
		l.SkipConnections = *p.SkipConnections
	}
}

func (p *layerPatch) hasHyperparameters() bool {
	return p.Name != nil || p.Filter != nil || p.Kernel != nil || p.Padding != nil || p.Strides != nil ||
		p.Activation != nil || p.Regularization != nil || p.BiasInitializer != nil || p.SkipConnections != nil
}

func (s *Server) handlePatchLayer(w http.ResponseWriter, r *http.Request) {
	i, err := indexParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var p layerPatch
	if _, err := decodeBody(r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	confirm := r.URL.Query().Get("confirm") == "true"

	s.mutate(w, r, http.StatusOK, "set", func(a *arch.Architecture, _ *netio.Network) error {
		if p.hasHyperparameters() {
			if err := a.Update(i, p.apply); err != nil {
				return err
			}
		}
		if p.Neurons == nil {
			return nil
		}
		if confirm {
			_, err := a.SetNeuronsOrRemove(i, *p.Neurons, func(int) bool { return true })
			return err
		}
		return a.SetNeurons(i, *p.Neurons)
	})
}

func (s *Server) handleDeleteLayer(w http.ResponseWriter, r *http.Request) {
	i, err := indexParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutate(w, r, http.StatusOK, "remove", func(a *arch.Architecture, _ *netio.Network) error {
		return a.Remove(i)
	})
}

func (s *Server) handleMoveLayer(w http.ResponseWriter, r *http.Request) {
	from, err := indexParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body struct {
		To *int `json:"to"`
	}
	if _, err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.To == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, `missing "to" index`))
		return
	}
	s.mutate(w, r, http.StatusOK, "move", func(a *arch.Architecture, _ *netio.Network) error {
		return a.Move(from, *body.To)
	})
}

// mutate applies fn to a scratch copy of the registry and commits it only
// on success, so a multi-step change is all or nothing. fn may replace the
// supplied weights and biases; otherwise they follow their layers and are
// dropped where they no longer fit.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, status int, op string,
	fn func(a *arch.Architecture, supplied *netio.Network) error,
) {
	s.mu.Lock()
	scratch := s.arch.Clone()
	supplied := &netio.Network{Arch: s.arch, Weights: s.weights, Biases: s.biases}
	err := fn(scratch, supplied)
	if err == nil {
		if supplied.Refit(scratch) {
			s.logger.Debug("dropped supplied weights or biases", "op", op)
		}
		s.arch, s.weights, s.biases = scratch, supplied.Weights, supplied.Biases
	}
	committed := s.arch.Clone()
	s.mu.Unlock()

	observability.Registry().OnMutation(r.Context(), op, committed.Len(), committed.TotalNeurons(), err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Debug("registry updated", "op", op, "layers", committed.Len(), "neurons", committed.TotalNeurons())
	writeJSON(w, status, newArchitectureBody(committed))
}

func indexParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "layer index must be an integer, got %q", raw)
	}
	return i, nil
}

// =============================================================================
// Rendering
// =============================================================================

// snapshot returns the state a render works from, with the live animation
// rotation and epoch applied.
func (s *Server) snapshot() (*arch.Architecture, pipeline.Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts := s.renderOpts
	opts.Weights = s.weights
	if s.loop != nil {
		opts.Scene.Rotation = s.loop.Rotation()
		opts.Scene.Epoch = s.loop.Epoch()
	}
	return s.arch.Clone(), opts
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	a, opts := s.snapshot()
	l, err := s.runner.Layout(r.Context(), a, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

var contentTypes = map[string]string{
	pipeline.FormatJSON: "application/json",
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatPNG:  "image/png",
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	a, opts := s.snapshot()
	q := r.URL.Query()

	format := q.Get("format")
	if format == "" {
		format = pipeline.FormatJSON
	}
	opts.Formats = []string{format}
	opts.Labels = q.Get("labels") == "true"
	opts.Detailed = q.Get("detailed") == "true"
	if raw := q.Get("epoch"); raw != "" {
		epoch, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "epoch must be a non-negative integer"))
			return
		}
		opts.Scene.Epoch = epoch
	}

	res, err := s.runner.Render(r.Context(), a, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	if res.CacheInfo.RenderHit {
		w.Header().Set("X-Cache", "hit")
	}
	_, _ = w.Write(res.Artifacts[format])
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	variant, err := netio.ParseVariant(r.URL.Query().Get("variant"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mu.Lock()
	n := &netio.Network{Arch: s.arch.Clone(), Weights: s.weights, Biases: s.biases}
	s.mu.Unlock()

	data, err := netio.Marshal(n, variant)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+variant.Filename()+`"`)
	_, _ = w.Write(append(data, '\n'))
}
