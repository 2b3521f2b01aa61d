package project

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/matzehuels/layerviz/pkg/config"
	"github.com/matzehuels/layerviz/pkg/errors"
)

// FileStore keeps each project in <dir>/<id>.json.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file store. An empty baseDir means the projects
// directory under the layerviz config dir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		dir, err := config.Dir()
		if err != nil {
			return nil, err
		}
		baseDir = filepath.Join(dir, "projects")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) projectPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID != "" && p.CreatedAt.IsZero() {
		if old, err := s.read(p.ID); err == nil {
			p.CreatedAt = old.CreatedAt
		}
	}
	if err := prepare(p); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	if err := os.WriteFile(s.projectPath(p.ID), data, 0o600); err != nil {
		return fmt.Errorf("write project file: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, id string) (*Project, error) {
	if err := errors.ValidateProjectID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(id)
}

func (s *FileStore) read(id string) (*Project, error) {
	data, err := os.ReadFile(s.projectPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("read project file: %w", err)
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse project %s", id)
	}
	return &p, nil
}

// List implements Store. Unreadable files are skipped.
func (s *FileStore) List(_ context.Context) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read project dir: %w", err)
	}
	var out []*Project
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		p, err := s.read(name[:len(name)-len(".json")])
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	sortProjects(out)
	return out, nil
}

// Delete implements Store.
func (s *FileStore) Delete(_ context.Context, id string) error {
	if err := errors.ValidateProjectID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.projectPath(id)); err != nil {
		if os.IsNotExist(err) {
			return notFound(id)
		}
		return fmt.Errorf("remove project file: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

// Path returns the directory holding project files.
func (s *FileStore) Path() string { return s.baseDir }

var _ Store = (*FileStore)(nil)
