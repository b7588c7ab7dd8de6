// Package transform prepares a [dag.DAG] for layered placement.
//
// # Overview
//
// Plans returned by the generator, or rearranged by hand in the editor,
// are not guaranteed to be acyclic. A reviewer step that sends work back
// to a drafting step is a loop, and users draw such loops on purpose. The
// layered engine needs a DAG with a row per node, so two passes run before
// rows are ordered:
//
//   - Back edges are removed so that every node can be ranked
//   - Each node is assigned to a row below all of its parents
//
// Both passes only touch the layout graph. The diagram document keeps every
// edge the user drew, including the ones removed here.
//
// # Cycle Breaking
//
// [BreakCycles] runs a depth-first search from the source nodes, then from
// any node not yet visited, in insertion order. An edge that reaches a node
// still on the search stack closes a cycle and is removed. For example:
//
//	Before: draft → review → publish, review → draft
//	After:  draft → review → publish
//
// The search order is fixed, so the same graph always loses the same edges
// and a reopened diagram lays out identically.
//
// # Layer Assignment
//
// [AssignLayers] computes longest-path ranks: sources sit in row 0 and every
// other node sits one row below its deepest parent. This is the same ranking
// dagre uses with ranker=longest-path, which keeps plans that were laid out
// in the browser and in the CLI visually consistent.
//
// # Usage
//
// Both functions modify the graph in place and must run in this order:
//
//	transform.BreakCycles(g)
//	transform.AssignLayers(g)
//
// [dag.DAG]: github.com/matzehuels/planmap/pkg/dag.DAG
package transform
