package project

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/config"
	"github.com/matzehuels/layerviz/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore keeps projects in a single SQLite table with the
// architecture stored as JSON.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path. An
// empty path means projects.db under the layerviz config dir; ":memory:"
// opens a private in-memory database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		dir, err := config.Dir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "projects.db")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serialises
	// writers without SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, p *Project) error {
	if err := prepare(p); err != nil {
		return err
	}
	data, err := json.Marshal(p.Architecture)
	if err != nil {
		return fmt.Errorf("marshal architecture: %w", err)
	}
	// created_at of an existing row wins so re-saving keeps history.
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO projects (id, name, architecture, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			architecture = excluded.architecture,
			updated_at = excluded.updated_at
		RETURNING created_at`,
		p.ID, p.Name, string(data), p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli())
	var created int64
	if err := row.Scan(&created); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	p.CreatedAt = time.UnixMilli(created).UTC()
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, architecture, created_at, updated_at FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, notFound(id)
	}
	return p, err
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, architecture, created_at, updated_at FROM projects ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(sc scanner) (*Project, error) {
	var (
		p                Project
		data             string
		created, updated int64
	)
	if err := sc.Scan(&p.ID, &p.Name, &data, &created, &updated); err != nil {
		return nil, err
	}
	var a arch.Architecture
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode project %s", p.ID)
	}
	p.Architecture = &a
	p.CreatedAt = time.UnixMilli(created).UTC()
	p.UpdatedAt = time.UnixMilli(updated).UTC()
	return &p, nil
}

var _ Store = (*SQLiteStore)(nil)
