// Package project persists named architectures.
//
// A [Project] wraps an architecture with an ID, a name and timestamps.
// Three [Store] backends are provided:
//   - [FileStore]: one JSON file per project, for the CLI
//   - [SQLiteStore]: a single-file database (modernc.org/sqlite, no cgo)
//   - [MongoStore]: a shared MongoDB collection for server deployments
//
// Every backend reports an unknown ID as NOT_FOUND (see pkg/errors).
package project

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/config"
	"github.com/matzehuels/layerviz/pkg/errors"
)

// Project is a saved architecture.
type Project struct {
	ID           string             `json:"id" bson:"_id"`
	Name         string             `json:"name" bson:"name"`
	Architecture *arch.Architecture `json:"architecture" bson:"architecture"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

// Store is the interface for project storage backends.
type Store interface {
	// Save inserts or replaces p. An empty ID is assigned; CreatedAt is
	// kept once set and UpdatedAt is refreshed.
	Save(ctx context.Context, p *Project) error
	// Get returns the project with id, or a NOT_FOUND error.
	Get(ctx context.Context, id string) (*Project, error)
	// List returns all projects, most recently updated first.
	List(ctx context.Context) ([]*Project, error)
	// Delete removes the project with id, or returns NOT_FOUND.
	Delete(ctx context.Context, id string) error
	Close() error
}

// New returns an unsaved project for a.
func New(name string, a *arch.Architecture) *Project {
	return &Project{Name: name, Architecture: a}
}

// now is the store clock. Millisecond precision survives every backend.
var now = func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// prepare validates p and stamps ID and timestamps before a write.
func prepare(p *Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := errors.ValidateProjectID(p.ID); err != nil {
		return err
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "project name is required")
	}
	if err := errors.ValidateName(p.Name); err != nil {
		return err
	}
	if p.Architecture == nil {
		return errors.New(errors.ErrCodeInvalidInput, "project %q has no architecture", p.Name)
	}
	if err := p.Architecture.Validate(); err != nil {
		return err
	}
	t := now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = t
	}
	p.UpdatedAt = t
	return nil
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "project %q not found", id)
}

func sortProjects(ps []*Project) {
	slices.SortFunc(ps, func(a, b *Project) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}

// Resolve finds a project by ID, falling back to an exact name match.
func Resolve(ctx context.Context, s Store, ref string) (*Project, error) {
	if errors.ValidateProjectID(ref) == nil {
		p, err := s.Get(ctx, ref)
		if err == nil || !errors.Is(err, errors.ErrCodeNotFound) {
			return p, err
		}
	}
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p.Name == ref {
			return p, nil
		}
	}
	return nil, notFound(ref)
}

// Open creates the store selected by cfg.
func Open(ctx context.Context, cfg config.Store) (Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return NewSQLiteStore(ctx, cfg.Path)
	case config.BackendMongo:
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.BackendFile, "":
		return NewFileStore(cfg.Path)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "unknown store backend %q", cfg.Backend)
}
