package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/matzehuels/planmap/pkg/diagram"
	perrors "github.com/matzehuels/planmap/pkg/errors"
)

// File stores each record as <dir>/<id>.json. Writes go through a temp
// file and rename, so a crash never leaves a truncated record.
type File struct {
	mu  sync.Mutex
	dir string
}

// NewFile creates a file store rooted at dir.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &File{dir: dir}, nil
}

// Dir returns the store directory.
func (f *File) Dir() string { return f.dir }

func (f *File) path(id string) string {
	return filepath.Join(f.dir, id+".json")
}

func (f *File) Create(_ context.Context, p diagram.Params, spec diagram.Document) (diagram.Diagram, error) {
	rec, err := newRecord(p, spec)
	if err != nil {
		return diagram.Diagram{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write(rec); err != nil {
		return diagram.Diagram{}, err
	}
	return rec, nil
}

func (f *File) Get(_ context.Context, id string) (diagram.Diagram, error) {
	if err := perrors.ValidateID(id); err != nil {
		return diagram.Diagram{}, ErrNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read(id)
}

func (f *File) Update(_ context.Context, id string, spec diagram.Document, rev int64) (diagram.Diagram, error) {
	if err := perrors.ValidateID(id); err != nil {
		return diagram.Diagram{}, ErrNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, err := f.read(id)
	if err != nil {
		return diagram.Diagram{}, err
	}
	next, err := nextRevision(rec.Revision, rev)
	if err != nil {
		return diagram.Diagram{}, err
	}
	rec.Spec = spec.Clone()
	rec.Revision = next
	if err := f.write(rec); err != nil {
		return diagram.Diagram{}, err
	}
	return rec, nil
}

func (f *File) Close() error { return nil }

func (f *File) read(id string) (diagram.Diagram, error) {
	data, err := os.ReadFile(f.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return diagram.Diagram{}, ErrNotFound
	}
	if err != nil {
		return diagram.Diagram{}, fmt.Errorf("read diagram: %w", err)
	}
	var rec diagram.Diagram
	if err := json.Unmarshal(data, &rec); err != nil {
		return diagram.Diagram{}, fmt.Errorf("parse diagram %s: %w", id, err)
	}
	rec.Spec = rec.Spec.Clone()
	return rec, nil
}

func (f *File) write(rec diagram.Diagram) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal diagram: %w", err)
	}
	tmp, err := os.CreateTemp(f.dir, ".diagram-*")
	if err != nil {
		return fmt.Errorf("write diagram: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write diagram: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write diagram: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(string(rec.ID))); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write diagram: %w", err)
	}
	return nil
}

var _ Store = (*File)(nil)
