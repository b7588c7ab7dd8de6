package layout

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/planmap/pkg/cache"
	"github.com/matzehuels/planmap/pkg/diagram"
	perrors "github.com/matzehuels/planmap/pkg/errors"
	"github.com/matzehuels/planmap/pkg/observability"
)

// Result is a positioned graph. Edges are a copy of the input edges.
type Result struct {
	Nodes []diagram.Node
	Edges []diagram.Edge
}

// Document returns the result as a persistable document.
func (r Result) Document() diagram.Document {
	return diagram.ToDocument(diagram.Live(r.Nodes), r.Edges)
}

// OnLoad decides whether saved positions survive a reload.
type OnLoad string

const (
	// OnLoadMissing keeps saved positions when any node has one and lays
	// out only documents that were never positioned.
	OnLoadMissing OnLoad = "missing"
	// OnLoadAlways discards saved positions and lays out every time.
	OnLoadAlways OnLoad = "always"
)

// ParseOnLoad parses "missing" or "always". Empty means missing.
func ParseOnLoad(s string) (OnLoad, error) {
	switch OnLoad(strings.ToLower(strings.TrimSpace(s))) {
	case "", OnLoadMissing:
		return OnLoadMissing, nil
	case OnLoadAlways:
		return OnLoadAlways, nil
	}
	return "", perrors.Validation("unknown on_load policy %q (want missing or always)", s)
}

// Adapter runs an engine over diagram nodes and edges.
type Adapter struct {
	engine Engine
	opts   Options
	cache  cache.Cache
	ttl    time.Duration
	logger *log.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithCache stores placements in c for ttl. A nil cache disables caching.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(a *Adapter) {
		a.cache = c
		a.ttl = ttl
	}
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an adapter. A nil engine means [Layered].
func New(engine Engine, opts Options, options ...Option) *Adapter {
	if engine == nil {
		engine = Layered{}
	}
	a := &Adapter{
		engine: engine,
		opts:   opts,
		logger: log.New(io.Discard),
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// Options returns the footprint the adapter lays out with.
func (a *Adapter) Options() Options { return a.opts }

// Engine returns the wrapped engine.
func (a *Adapter) Engine() Engine { return a.engine }

// Layout positions every node. Node ids must be non-empty and unique and
// every edge endpoint must name a node; otherwise a LayoutError is
// returned and nothing is positioned. Input slices are not modified.
func (a *Adapter) Layout(ctx context.Context, nodes []diagram.Node, edges []diagram.Edge, dir Direction) (res Result, err error) {
	g, err := topology(nodes, edges)
	if err != nil {
		return Result{}, err
	}

	res = Result{
		Nodes: make([]diagram.Node, len(nodes)),
		Edges: slices.Clone(edges),
	}
	if res.Edges == nil {
		res.Edges = []diagram.Edge{}
	}
	copy(res.Nodes, nodes)
	for i := range res.Nodes {
		if p := res.Nodes[i].ParentID; p != nil {
			v := *p
			res.Nodes[i].ParentID = &v
		}
	}
	if len(nodes) == 0 {
		return res, nil
	}

	name := a.engine.Name()
	start := time.Now()
	observability.Layout().OnLayoutStart(ctx, name, len(nodes))
	defer func() {
		observability.Layout().OnLayoutComplete(ctx, name, len(nodes), time.Since(start), err)
	}()

	points, err := a.place(ctx, g, dir)
	if err != nil {
		return Result{}, err
	}

	minX := math.Inf(1)
	for _, id := range g.Nodes {
		p, ok := points[id]
		if !ok {
			return Result{}, perrors.Layout("%s engine returned no position for node %q", name, id)
		}
		minX = min(minX, p.X)
	}
	for i := range res.Nodes {
		p := points[res.Nodes[i].ID]
		res.Nodes[i].Position = diagram.Position{
			X: p.X - minX,
			Y: p.Y - a.opts.NodeHeight/2,
		}
	}
	return res, nil
}

// Load prepares a fetched document for editing. Under [OnLoadMissing] a
// document that already carries positions is returned as saved; otherwise
// positions are stripped and the graph is laid out.
func (a *Adapter) Load(ctx context.Context, doc diagram.Document, dir Direction, policy OnLoad) (Result, error) {
	if policy != OnLoadAlways && diagram.HasPositions(doc) {
		if _, err := topology(doc.NodeDataArray, doc.LinkDataArray); err != nil {
			return Result{}, err
		}
		nodes, edges := diagram.FromDocumentKeepPositions(doc)
		return Result{Nodes: nodes, Edges: edges}, nil
	}
	nodes, edges := diagram.FromDocument(doc)
	return a.Layout(ctx, nodes, edges, dir)
}

// place consults the cache before running the engine. Cache failures are
// logged and otherwise ignored.
func (a *Adapter) place(ctx context.Context, g Graph, dir Direction) (map[string]Point, error) {
	var key string
	if a.cache != nil {
		key = cache.Key("layout", a.engine.Name(), dir, a.opts, g.Nodes, g.Edges)
		data, hit, err := a.cache.Get(ctx, key)
		switch {
		case err != nil:
			a.logger.Warn("layout cache read failed", "err", err)
		case hit:
			var points map[string]Point
			if err := json.Unmarshal(data, &points); err == nil {
				observability.Cache().OnCacheHit(ctx, "layout")
				a.logger.Debug("layout cache hit", "nodes", len(g.Nodes))
				return points, nil
			}
			a.logger.Warn("discarding corrupt layout cache entry")
		default:
			observability.Cache().OnCacheMiss(ctx, "layout")
		}
	}

	points, err := a.engine.Place(ctx, g, dir, a.opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, perrors.Wrap(perrors.ErrCodeLayout, err, "%s engine failed", a.engine.Name())
	}

	if a.cache != nil {
		if data, err := json.Marshal(points); err == nil {
			if err := a.cache.Set(ctx, key, data, a.ttl); err != nil {
				a.logger.Warn("layout cache write failed", "err", err)
			} else {
				observability.Cache().OnCacheSet(ctx, "layout", len(data))
			}
		}
	}
	return points, nil
}

// topology checks ids and edge endpoints and extracts the engine input.
func topology(nodes []diagram.Node, edges []diagram.Edge) (Graph, error) {
	g := Graph{
		Nodes: make([]string, 0, len(nodes)),
		Edges: make([][2]string, 0, len(edges)),
	}
	seen := make(map[string]struct{}, len(nodes))
	for i, n := range nodes {
		if n.ID == "" {
			return Graph{}, perrors.Layout("node %d has an empty id", i)
		}
		if _, dup := seen[n.ID]; dup {
			return Graph{}, perrors.Layout("duplicate node id %q", n.ID)
		}
		seen[n.ID] = struct{}{}
		g.Nodes = append(g.Nodes, n.ID)
	}
	for _, e := range edges {
		if _, ok := seen[e.Source]; !ok {
			return Graph{}, perrors.Layout("edge %q references missing node %q", e.ID, e.Source)
		}
		if _, ok := seen[e.Target]; !ok {
			return Graph{}, perrors.Layout("edge %q references missing node %q", e.ID, e.Target)
		}
		g.Edges = append(g.Edges, [2]string{e.Source, e.Target})
	}
	return g, nil
}
