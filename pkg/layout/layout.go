// Package layout assigns screen positions to diagram nodes.
//
// # Overview
//
// An [Engine] places node centers for a bare topology; the [Adapter] wraps
// an engine with input validation, optional caching and the coordinate
// post-processing every consumer relies on:
//
//	x = centerX - min(centerX)
//	y = centerY - NodeHeight/2
//
// so the leftmost node sits at x = 0 and y is the top edge of the box.
// Edges are never modified; they are copied into the [Result] as given.
//
// # Engines
//
// [Layered] is the default. It ranks nodes by longest path, orders each
// rank with the barycenter heuristic from package ordering and centers
// ranks against the widest one. Cycles are tolerated: back edges are
// ignored for ranking only.
//
// [Graphviz] delegates to the dot program through go-graphviz. Every node
// is a fixed-size box, so both engines honour the same [Options]
// footprint. Node ids never reach DOT; nodes are named by index and the
// positions are mapped back.
//
// # Validation
//
// Node ids must be non-empty and unique and every edge endpoint must name a
// node. Violations fail with a LAYOUT_ERROR before any engine runs, and no
// node is positioned; a malformed graph is never silently trimmed.
//
// # Reload Policy
//
// [Adapter.Load] prepares a stored document for editing. Under
// [OnLoadMissing] a document that already carries positions keeps them, so
// a user's arrangement survives a reload; [OnLoadAlways] lays out from
// scratch every time:
//
//	a := layout.New(layout.Layered{}, layout.DefaultOptions())
//	res, err := a.Load(ctx, rec.Spec, layout.LR, layout.OnLoadMissing)
//
// # Caching
//
// With [WithCache], placements are keyed by engine, direction, footprint
// and topology. Attributes such as role or status do not affect the key,
// so editing a task never invalidates a layout.
package layout

import (
	"context"
	"strings"

	perrors "github.com/matzehuels/planmap/pkg/errors"
)

// Direction is the rank direction of the layout.
type Direction string

const (
	// LR ranks left to right: edges point rightwards.
	LR Direction = "LR"
	// TB ranks top to bottom: edges point downwards.
	TB Direction = "TB"
)

// ParseDirection parses "LR" or "TB" case-insensitively. Empty means LR.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(LR):
		return LR, nil
	case string(TB):
		return TB, nil
	}
	return "", perrors.Validation("unknown layout direction %q (want LR or TB)", s)
}

// Options is the fixed node footprint and spacing, in pixels.
type Options struct {
	NodeWidth  float64 `json:"node_width"`
	NodeHeight float64 `json:"node_height"`
	NodeSep    float64 `json:"node_sep"` // gap between siblings in a rank
	RankSep    float64 `json:"rank_sep"` // gap between ranks
	Margin     float64 `json:"margin"`
}

// DefaultOptions returns the editor's footprint: 200x80 boxes, 60px
// between siblings, 80px between ranks and a 40px margin.
func DefaultOptions() Options {
	return Options{
		NodeWidth:  200,
		NodeHeight: 80,
		NodeSep:    60,
		RankSep:    80,
		Margin:     40,
	}
}

// Validate rejects non-positive sizes and negative gaps.
func (o Options) Validate() error {
	if o.NodeWidth <= 0 || o.NodeHeight <= 0 {
		return perrors.Validation("node size must be positive, got %gx%g", o.NodeWidth, o.NodeHeight)
	}
	if o.NodeSep < 0 || o.RankSep < 0 || o.Margin < 0 {
		return perrors.Validation("layout gaps must not be negative")
	}
	return nil
}

// Point is a node center produced by an engine.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Graph is the topology handed to an engine. Node ids are unique and
// every edge endpoint is a node id.
type Graph struct {
	Nodes []string
	Edges [][2]string
}

// Engine places node centers. Implementations must return a point for
// every node and must be deterministic for a given graph, options and
// direction.
type Engine interface {
	Name() string
	Place(ctx context.Context, g Graph, dir Direction, opts Options) (map[string]Point, error)
}

// Engine names accepted by [NewEngine].
const (
	EngineLayered  = "layered"
	EngineGraphviz = "graphviz"
)

// NewEngine returns the engine registered under name. Empty means layered.
func NewEngine(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EngineLayered:
		return Layered{}, nil
	case EngineGraphviz:
		return Graphviz{}, nil
	}
	return nil, perrors.Validation("unknown layout engine %q (want %s or %s)", name, EngineLayered, EngineGraphviz)
}
