// Package dag provides the directed graph used by the native layered
// layout engine.
//
// # Overview
//
// A [DAG] holds nodes with an assigned row (rank) and directed edges.
// Rows are filled in by [transform.AssignLayers]; the left-to-right order
// inside each row is chosen by an [ordering.Orderer]. The layout package
// then turns (row, order) pairs into coordinates.
//
// Unlike a strict proper layering, edges may span several rows. Crossing
// counts ([CountCrossings], [CountLayerCrossings]) only consider edges
// between adjacent rows, which is what the ordering heuristics optimize.
//
// # Determinism
//
// The graph remembers insertion order. [DAG.Nodes], [DAG.Sources],
// [DAG.NodesInRow] and the adjacency lists all follow it, so the same
// input always produces the same layout.
//
// # Usage
//
//	g := dag.New()
//	g.AddNode("plan")
//	g.AddNode("build")
//	g.AddEdge("plan", "build")
//
//	transform.BreakCycles(g)
//	transform.AssignLayers(g)
//	orders := ordering.Barycentric{Passes: 4}.OrderRows(g)
//
// [transform.AssignLayers]: github.com/matzehuels/planmap/pkg/dag/transform.AssignLayers
// [ordering.Orderer]: github.com/matzehuels/planmap/pkg/dag/ordering.Orderer
package dag
