package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/planmap/pkg/diagram"
	"github.com/matzehuels/planmap/pkg/layout"
)

// Fill colors per task status.
const (
	ColorComplete   = "#d1f5d3"
	ColorInProgress = "#ffdddd"
	ColorDefault    = "#ffffff"
)

const pointsPerInch = 72.0

// Options configures DOT generation and rendering.
type Options struct {
	// Direction is the rank direction used when nodes are not pinned.
	Direction layout.Direction

	// Pinned fixes nodes at their saved positions.
	Pinned bool

	// Comments appends node comments to the labels.
	Comments bool

	// Footprint is the node box size. Zero means layout defaults.
	Footprint layout.Options
}

func (o Options) footprint() layout.Options {
	if o.Footprint.NodeWidth > 0 && o.Footprint.NodeHeight > 0 {
		return o.Footprint
	}
	return layout.DefaultOptions()
}

// StatusColor returns the fill color for s.
func StatusColor(s diagram.Status) string {
	switch s {
	case diagram.StatusComplete:
		return ColorComplete
	case diagram.StatusInProgress:
		return ColorInProgress
	}
	return ColorDefault
}

// ToDOT converts doc to Graphviz DOT. Nodes and edges keep document order.
func ToDOT(doc diagram.Document, opts Options) string {
	dir := opts.Direction
	if dir == "" {
		dir = layout.LR
	}
	fp := opts.footprint()
	pinned := opts.Pinned && diagram.HasPositions(doc)

	var b strings.Builder
	b.WriteString("digraph G {\n")
	fmt.Fprintf(&b, "  rankdir=%s;\n", dir)
	b.WriteString("  bgcolor=\"transparent\";\n")
	fmt.Fprintf(&b, "  nodesep=%s;\n", inches(fp.NodeSep))
	fmt.Fprintf(&b, "  ranksep=%s;\n", inches(fp.RankSep))
	fmt.Fprintf(&b, "  node [shape=box, style=\"rounded,filled\", fixedsize=true, width=%s, height=%s, fontsize=12, fontname=\"Helvetica\"];\n",
		inches(fp.NodeWidth), inches(fp.NodeHeight))
	b.WriteString("  edge [fontsize=10, fontname=\"Helvetica\"];\n")
	b.WriteString("\n")

	for _, n := range doc.NodeDataArray {
		attrs := []string{
			fmt.Sprintf("label=%q", nodeLabel(n, opts.Comments)),
			fmt.Sprintf("fillcolor=%q", StatusColor(n.Data.Status)),
		}
		if n.Kind == diagram.KindCondition {
			attrs = append(attrs, "shape=diamond")
		}
		if pinned {
			// Saved positions are top-left corners with y growing down.
			x := n.Position.X + fp.NodeWidth/2
			y := -(n.Position.Y + fp.NodeHeight/2)
			attrs = append(attrs, fmt.Sprintf("pos=\"%s,%s!\"", inches(x), inches(y)))
		}
		fmt.Fprintf(&b, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	b.WriteString("\n")
	for _, e := range doc.LinkDataArray {
		if e.Label != "" {
			fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", e.Source, e.Target, e.Label)
			continue
		}
		fmt.Fprintf(&b, "  %q -> %q;\n", e.Source, e.Target)
	}

	b.WriteString("}\n")
	return b.String()
}

func nodeLabel(n diagram.Node, comments bool) string {
	var lines []string
	if n.Data.Role != "" {
		lines = append(lines, n.Data.Role)
	}
	if n.Data.Task != "" {
		lines = append(lines, n.Data.Task)
	}
	if n.Data.Model != "" {
		lines = append(lines, "("+n.Data.Model+")")
	}
	if comments && n.Data.Comment != "" {
		lines = append(lines, "# "+n.Data.Comment)
	}
	if len(lines) == 0 {
		return n.ID
	}
	return strings.Join(lines, "\n")
}

func inches(px float64) string {
	return strconv.FormatFloat(px/pointsPerInch, 'f', 4, 64)
}
