package transform

import "github.com/matzehuels/planmap/pkg/dag"

// AssignLayers ranks nodes by longest path from the sources: each node sits
// one row below the deepest of its parents. This guarantees that:
//   - Source nodes (no incoming edges) are in row 0
//   - Every parent is strictly above each of its children
//   - A node with parents in several rows follows the deepest one
//
// Existing row assignments in the DAG are overwritten.
//
// # Algorithm
//
// AssignLayers is a topological traversal (Kahn's algorithm):
//  1. Queue every source node at row 0
//  2. Pop a node and push each child to at least the node's row + 1
//  3. Decrement the child's pending in-degree; queue it once it hits zero
//  4. Repeat until the queue is empty
//
// # Cycles
//
// The graph must be acyclic. Nodes on a cycle never reach zero pending
// in-degree and stay in row 0, so run [BreakCycles] first.
//
// # Performance
//
// Time complexity is O(V + E). Space is O(V) for the queue and the row and
// degree maps.
func AssignLayers(g *dag.DAG) {
	nodes := g.Nodes()
	pending := make(map[string]int, len(nodes))
	rows := make(map[string]int, len(nodes))
	queue := make([]string, 0, len(nodes))

	for _, n := range nodes {
		pending[n.ID] = g.InDegree(n.ID)
		if pending[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, child := range g.Children(curr) {
			if row := rows[curr] + 1; row > rows[child] {
				rows[child] = row
			}
			pending[child]--
			if pending[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	g.SetRows(rows)
}
