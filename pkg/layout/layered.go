package layout

import (
	"context"

	"github.com/matzehuels/planmap/pkg/dag"
	"github.com/matzehuels/planmap/pkg/dag/ordering"
	"github.com/matzehuels/planmap/pkg/dag/transform"
)

// Layered is the native engine: longest-path ranks, barycentric ordering
// inside each rank, ranks centered against the widest one.
//
// Edges closing a cycle are ignored for ranking, so loops drawn by users
// or emitted by the generator still produce a layout.
type Layered struct {
	// Passes is the number of ordering sweeps; zero uses the ordering default.
	Passes int
}

func (Layered) Name() string { return EngineLayered }

func (l Layered) Place(ctx context.Context, g Graph, dir Direction, opts Options) (map[string]Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d := dag.New()
	for _, id := range g.Nodes {
		if err := d.AddNode(id); err != nil {
			return nil, err
		}
	}
	for _, e := range g.Edges {
		if err := d.AddEdge(e[0], e[1]); err != nil {
			return nil, err
		}
	}

	transform.BreakCycles(d)
	if err := d.Validate(); err != nil {
		return nil, err
	}
	transform.AssignLayers(d)
	orders := ordering.Barycentric{Passes: l.Passes}.OrderRows(d)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Along the rank axis a node occupies rankSize; across it, crossSize.
	rankSize, crossSize := opts.NodeHeight, opts.NodeWidth
	if dir == LR {
		rankSize, crossSize = opts.NodeWidth, opts.NodeHeight
	}

	extent := func(n int) float64 {
		if n == 0 {
			return 0
		}
		return float64(n)*crossSize + float64(n-1)*opts.NodeSep
	}
	widest := 0.0
	for _, ids := range orders {
		widest = max(widest, extent(len(ids)))
	}

	points := make(map[string]Point, len(g.Nodes))
	for row, ids := range orders {
		along := opts.Margin + float64(row)*(rankSize+opts.RankSep) + rankSize/2
		offset := opts.Margin + (widest-extent(len(ids)))/2
		for i, id := range ids {
			across := offset + float64(i)*(crossSize+opts.NodeSep) + crossSize/2
			if dir == LR {
				points[id] = Point{X: along, Y: across}
			} else {
				points[id] = Point{X: across, Y: along}
			}
		}
	}
	return points, nil
}

var _ Engine = Layered{}
