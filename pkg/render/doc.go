// Package render exports diagram documents as Graphviz DOT and SVG.
//
// # Overview
//
// [ToDOT] writes a document as a DOT digraph: one rounded box per node
// labelled with its role, task and model, filled by status, and one arrow
// per edge carrying the edge label. [RenderSVG] turns DOT into SVG in
// process through go-graphviz, so no graphviz binary is needed.
//
//	dot := render.ToDOT(doc, render.Options{Direction: layout.LR})
//	svg, err := render.RenderSVG(ctx, dot, render.Options{})
//
// # Pinned Positions
//
// When [Options.Pinned] is set and the document carries positions, nodes
// are pinned to their saved coordinates and rendered with the neato
// layout, so the export matches what the editor shows. Otherwise dot
// ranks the graph itself in the requested direction.
//
// # Status Colors
//
//   - complete:    #d1f5d3
//   - in-progress: #ffdddd
//   - none:        #ffffff
package render
