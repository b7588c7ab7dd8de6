// Package store persists diagram records for the reference server.
//
// Backends:
//   - memory: map guarded by a mutex, for tests and `planmap serve --store memory`
//   - file:   one JSON file per diagram with atomic replace
//   - redis:  go-redis with WATCH/MULTI optimistic transactions
//   - mongo:  mongo-driver with filtered updates
//
// All backends apply the same revision rule on Update: revision 0 is an
// unconditional write that bumps the stored revision by one; any other
// revision must be greater than the stored one and becomes the stored
// revision. Anything else fails with [ErrConflict].
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/planmap/pkg/diagram"
	perrors "github.com/matzehuels/planmap/pkg/errors"
)

// Sentinel errors returned by every backend. They carry the NOT_FOUND and
// CONFLICT codes, so callers may match them with errors.Is or by code.
var (
	// ErrNotFound is returned when a diagram does not exist.
	ErrNotFound error = perrors.New(perrors.ErrCodeNotFound, "diagram not found")

	// ErrConflict is returned when an update carries a stale revision.
	ErrConflict error = perrors.New(perrors.ErrCodeConflict, "stale diagram revision")
)

// Store is a diagram record store.
type Store interface {
	// Create stores a new record with a fresh id and revision 0.
	Create(ctx context.Context, p diagram.Params, spec diagram.Document) (diagram.Diagram, error)

	// Get returns record id or ErrNotFound.
	Get(ctx context.Context, id string) (diagram.Diagram, error)

	// Update replaces the spec of record id under the revision rule.
	Update(ctx context.Context, id string, spec diagram.Document, rev int64) (diagram.Diagram, error)

	// Close releases backend resources.
	Close() error
}

// nextRevision applies the revision rule to the stored revision.
func nextRevision(stored, rev int64) (int64, error) {
	switch {
	case rev == 0:
		return stored + 1, nil
	case rev > stored:
		return rev, nil
	}
	return 0, ErrConflict
}

// newRecord builds a record with a time-ordered id.
func newRecord(p diagram.Params, spec diagram.Document) (diagram.Diagram, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return diagram.Diagram{}, err
	}
	return diagram.Diagram{
		ID:        diagram.ID(id.String()),
		Params:    p,
		Spec:      spec.Clone(),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}, nil
}

func clone(d diagram.Diagram) diagram.Diagram {
	d.Spec = d.Spec.Clone()
	return d
}
