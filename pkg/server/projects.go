package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/layerviz/pkg/arch"
	netio "github.com/matzehuels/layerviz/pkg/io"
	"github.com/matzehuels/layerviz/pkg/project"
)

// projectSummary is a list entry without the architecture.
type projectSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Layers       int    `json:"layers"`
	TotalNeurons int    `json:"totalNeurons"`
	UpdatedAt    string `json:"updated_at"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ps, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]projectSummary, 0, len(ps))
	for _, p := range ps {
		out = append(out, projectSummary{
			ID:           p.ID,
			Name:         p.Name,
			Layers:       p.Architecture.Len(),
			TotalNeurons: p.Architecture.TotalNeurons(),
			UpdatedAt:    p.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSaveProject stores the current architecture under a name. Passing
// an existing id overwrites that project.
func (s *Server) handleSaveProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if _, err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	p := project.New(body.Name, s.Architecture())
	p.ID = body.ID
	if err := s.store.Save(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("project saved", "id", p.ID, "name", p.Name)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := project.Resolve(r.Context(), s.store, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleLoadProject replaces the live architecture with a saved one.
// Supplied weights are dropped since they belong to the old shape.
func (s *Server) handleLoadProject(w http.ResponseWriter, r *http.Request) {
	p, err := project.Resolve(r.Context(), s.store, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutate(w, r, http.StatusOK, "load", func(a *arch.Architecture, supplied *netio.Network) error {
		if err := a.Replace(p.Architecture); err != nil {
			return err
		}
		supplied.Weights, supplied.Biases = nil, nil
		return nil
	})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
