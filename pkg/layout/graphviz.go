package layout

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
)

// pointsPerInch converts between graphviz inches and pixels (points).
const pointsPerInch = 72.0

// Graphviz places nodes with the dot program through go-graphviz. Boxes
// are fixed-size so the footprint matches the native engine; coordinates
// are read back from the laid-out DOT and flipped to screen space (y
// grows downwards).
type Graphviz struct{}

func (Graphviz) Name() string { return EngineGraphviz }

func (Graphviz) Place(ctx context.Context, g Graph, dir Direction, opts Options) (map[string]Point, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	src, err := graphviz.ParseBytes([]byte(toDOT(g, dir, opts)))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer src.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, src, graphviz.XDOT, &buf); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	out, err := graphviz.ParseBytes(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parse laid-out DOT: %w", err)
	}
	defer out.Close()

	bb, err := parseFloats(out.GetStr("bb"), 4)
	if err != nil {
		return nil, fmt.Errorf("bounding box: %w", err)
	}
	top := bb[3]

	points := make(map[string]Point, len(g.Nodes))
	n, err := out.FirstNode()
	for ; err == nil && n != nil; n, err = out.NextNode(n) {
		name, err := n.Name()
		if err != nil {
			return nil, err
		}
		i, ok := nodeIndex(name, len(g.Nodes))
		if !ok {
			return nil, fmt.Errorf("unexpected node %q in layout output", name)
		}
		id := g.Nodes[i]
		pos, err := parseFloats(n.GetStr("pos"), 2)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}
		points[id] = Point{
			X: pos[0] + opts.Margin,
			Y: top - pos[1] + opts.Margin,
		}
	}
	if err != nil {
		return nil, err
	}
	return points, nil
}

// toDOT writes the graph with a fixed box per node. Nodes are named n0..nK
// by their index in g.Nodes so that arbitrary ids never need DOT quoting.
// They are emitted in input order, which dot uses as its initial in-rank
// order.
func toDOT(g Graph, dir Direction, opts Options) string {
	var b strings.Builder
	b.WriteString("digraph G {\n")
	fmt.Fprintf(&b, "  rankdir=%s;\n", dir)
	fmt.Fprintf(&b, "  nodesep=%s;\n", inches(opts.NodeSep))
	fmt.Fprintf(&b, "  ranksep=%s;\n", inches(opts.RankSep))
	b.WriteString("  ordering=out;\n")
	fmt.Fprintf(&b, "  node [shape=box, fixedsize=true, width=%s, height=%s, label=\"\"];\n",
		inches(opts.NodeWidth), inches(opts.NodeHeight))
	index := make(map[string]int, len(g.Nodes))
	for i, id := range g.Nodes {
		index[id] = i
		fmt.Fprintf(&b, "  %s;\n", dotName(i))
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "  %s -> %s;\n", dotName(index[e[0]]), dotName(index[e[1]]))
	}
	b.WriteString("}\n")
	return b.String()
}

func dotName(i int) string { return "n" + strconv.Itoa(i) }

// nodeIndex inverts dotName for an index below n.
func nodeIndex(name string, n int) (int, bool) {
	digits, ok := strings.CutPrefix(name, "n")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(digits)
	if err != nil || i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

func inches(px float64) string {
	return strconv.FormatFloat(px/pointsPerInch, 'f', 4, 64)
}

// parseFloats parses a comma separated graphviz coordinate list such as
// "27,18" or "0,0,54,108". A trailing "!" (pinned position) is ignored.
func parseFloats(s string, want int) ([]float64, error) {
	parts := strings.Split(strings.TrimSuffix(strings.TrimSpace(s), "!"), ",")
	if len(parts) < want {
		return nil, fmt.Errorf("malformed coordinates %q", s)
	}
	out := make([]float64, want)
	for i := range want {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed coordinates %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

var _ Engine = Graphviz{}
