package transform

import "github.com/matzehuels/planmap/pkg/dag"

// BreakCycles removes every back edge discovered by a depth-first search
// and returns how many edges were removed. The search starts from source
// nodes and then from any node not yet visited, both in insertion order,
// so the edges chosen are stable for a given graph. Self-loops always count
// as back edges.
func BreakCycles(g *dag.DAG) int {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, g.NodeCount())
	var back [][2]string

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		for _, child := range g.Children(id) {
			switch color[child] {
			case white:
				visit(child)
			case gray:
				back = append(back, [2]string{id, child})
			}
		}
		color[id] = black
	}

	for _, n := range g.Sources() {
		if color[n.ID] == white {
			visit(n.ID)
		}
	}
	for _, n := range g.Nodes() {
		if color[n.ID] == white {
			visit(n.ID)
		}
	}

	removed := 0
	for _, e := range back {
		before := g.EdgeCount()
		g.RemoveEdge(e[0], e[1])
		removed += before - g.EdgeCount()
	}
	return removed
}
