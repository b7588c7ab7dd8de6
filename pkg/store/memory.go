package store

import (
	"context"
	"sync"

	"github.com/matzehuels/planmap/pkg/diagram"
)

// Memory keeps records in process memory.
type Memory struct {
	mu   sync.RWMutex
	recs map[string]diagram.Diagram
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{recs: make(map[string]diagram.Diagram)}
}

func (m *Memory) Create(_ context.Context, p diagram.Params, spec diagram.Document) (diagram.Diagram, error) {
	rec, err := newRecord(p, spec)
	if err != nil {
		return diagram.Diagram{}, err
	}
	m.mu.Lock()
	m.recs[string(rec.ID)] = rec
	m.mu.Unlock()
	return clone(rec), nil
}

func (m *Memory) Get(_ context.Context, id string) (diagram.Diagram, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[id]
	if !ok {
		return diagram.Diagram{}, ErrNotFound
	}
	return clone(rec), nil
}

func (m *Memory) Update(_ context.Context, id string, spec diagram.Document, rev int64) (diagram.Diagram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return diagram.Diagram{}, ErrNotFound
	}
	next, err := nextRevision(rec.Revision, rev)
	if err != nil {
		return diagram.Diagram{}, err
	}
	rec.Spec = spec.Clone()
	rec.Revision = next
	m.recs[id] = rec
	return clone(rec), nil
}

func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
