// Package ordering chooses the left-to-right order of nodes inside each row
// of a layered [dag.DAG].
//
// [Barycentric] is the classic Sugiyama barycenter heuristic: every node is
// placed near the mean position of its neighbours in the adjacent row,
// sweeping down and then up, followed by a transpose pass that swaps
// neighbours when doing so removes crossings. The best ordering seen across
// all passes is returned.
//
// [dag.DAG]: github.com/matzehuels/planmap/pkg/dag.DAG
package ordering

import (
	"maps"
	"slices"

	"github.com/matzehuels/planmap/pkg/dag"
)

// DefaultPasses is the number of down/up sweeps used when Barycentric.Passes
// is zero.
const DefaultPasses = 8

// Orderer determines the horizontal sequence of nodes in each row.
type Orderer interface {
	OrderRows(g *dag.DAG) map[int][]string
}

// Barycentric orders rows with the barycenter heuristic. Ties keep the
// current order, so for a given graph the result never varies.
type Barycentric struct {
	Passes int
}

// OrderRows returns row index -> node IDs. Rows must already be assigned.
func (b Barycentric) OrderRows(g *dag.DAG) map[int][]string {
	rows := g.RowIDs()
	orders := make(map[int][]string, len(rows))
	for _, r := range rows {
		orders[r] = dag.NodeIDs(g.NodesInRow(r))
	}
	if len(rows) < 2 {
		return orders
	}

	passes := b.Passes
	if passes <= 0 {
		passes = DefaultPasses
	}

	best := clone(orders)
	bestCrossings := dag.CountCrossings(g, orders)

	for p := 0; p < passes && bestCrossings > 0; p++ {
		if p%2 == 0 {
			for i := 1; i < len(rows); i++ {
				sortByBarycenter(orders[rows[i]], orders[rows[i-1]], g.Parents)
			}
		} else {
			for i := len(rows) - 2; i >= 0; i-- {
				sortByBarycenter(orders[rows[i]], orders[rows[i+1]], g.Children)
			}
		}
		transpose(g, rows, orders)

		if c := dag.CountCrossings(g, orders); c < bestCrossings {
			bestCrossings = c
			best = clone(orders)
		}
	}
	return best
}

// sortByBarycenter reorders row in place by the mean position of each
// node's neighbours in adj. Nodes without neighbours in adj keep their
// current index as their key.
func sortByBarycenter(row, adj []string, neighbours func(string) []string) {
	adjPos := dag.PosMap(adj)
	keys := make(map[string]float64, len(row))
	for i, id := range row {
		sum, n := 0, 0
		for _, nb := range neighbours(id) {
			if p, ok := adjPos[nb]; ok {
				sum += p
				n++
			}
		}
		if n == 0 {
			keys[id] = float64(i)
			continue
		}
		keys[id] = float64(sum) / float64(n)
	}
	slices.SortStableFunc(row, func(a, b string) int {
		switch {
		case keys[a] < keys[b]:
			return -1
		case keys[a] > keys[b]:
			return 1
		}
		return 0
	})
}

// transpose swaps adjacent nodes while doing so strictly lowers the
// crossings with both neighbouring rows.
func transpose(g *dag.DAG, rows []int, orders map[int][]string) {
	for improved, guard := true, 0; improved && guard < len(rows)*4; guard++ {
		improved = false
		for i, r := range rows {
			row := orders[r]
			var above, below map[string]int
			if i > 0 {
				above = dag.PosMap(orders[rows[i-1]])
			}
			if i < len(rows)-1 {
				below = dag.PosMap(orders[rows[i+1]])
			}
			for j := 0; j+1 < len(row); j++ {
				a, b := row[j], row[j+1]
				keep := dag.CountPairCrossings(g, a, b, above, true) + dag.CountPairCrossings(g, a, b, below, false)
				swap := dag.CountPairCrossings(g, b, a, above, true) + dag.CountPairCrossings(g, b, a, below, false)
				if swap < keep {
					row[j], row[j+1] = b, a
					improved = true
				}
			}
		}
	}
}

func clone(orders map[int][]string) map[int][]string {
	out := make(map[int][]string, len(orders))
	for _, r := range slices.Sorted(maps.Keys(orders)) {
		out[r] = slices.Clone(orders[r])
	}
	return out
}
