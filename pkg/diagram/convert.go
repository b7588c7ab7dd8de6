package diagram

import (
	"slices"

	perrors "github.com/matzehuels/planmap/pkg/errors"
)

// ToDocument serializes live editor state into a document. Only the
// persistable node fields are kept; selection and hover state are dropped.
// The returned slices are fresh copies and never nil.
func ToDocument(nodes []LiveNode, edges []Edge) Document {
	doc := Document{
		NodeDataArray: make([]Node, len(nodes)),
		LinkDataArray: make([]Edge, len(edges)),
	}
	for i, n := range nodes {
		doc.NodeDataArray[i] = n.Node.clone()
	}
	copy(doc.LinkDataArray, edges)
	return doc
}

// FromDocument returns layout input for doc: every node with its position
// cleared, and the edges unchanged.
func FromDocument(doc Document) ([]Node, []Edge) {
	nodes, edges := FromDocumentKeepPositions(doc)
	for i := range nodes {
		nodes[i].Position = Position{}
	}
	return nodes, edges
}

// FromDocumentKeepPositions is like [FromDocument] but keeps the saved
// positions.
func FromDocumentKeepPositions(doc Document) ([]Node, []Edge) {
	c := doc.Clone()
	return c.NodeDataArray, c.LinkDataArray
}

// Live wraps nodes as unselected live nodes.
func Live(nodes []Node) []LiveNode {
	out := make([]LiveNode, len(nodes))
	for i, n := range nodes {
		out[i] = LiveNode{Node: n.clone()}
	}
	return out
}

// HasPositions reports whether any node in doc carries a non-zero position.
// Freshly generated specs place every node at the origin.
func HasPositions(doc Document) bool {
	return slices.ContainsFunc(doc.NodeDataArray, func(n Node) bool {
		return !n.Position.IsZero()
	})
}

// AttributesEqual reports whether a and b hold the same nodes and edges in
// the same order, ignoring node positions.
func AttributesEqual(a, b Document) bool {
	if len(a.NodeDataArray) != len(b.NodeDataArray) || len(a.LinkDataArray) != len(b.LinkDataArray) {
		return false
	}
	for i := range a.NodeDataArray {
		x, y := a.NodeDataArray[i], b.NodeDataArray[i]
		if x.ID != y.ID || x.Kind != y.Kind || x.Data != y.Data || x.Parent() != y.Parent() {
			return false
		}
		if (x.ParentID == nil) != (y.ParentID == nil) {
			return false
		}
	}
	return slices.Equal(a.LinkDataArray, b.LinkDataArray)
}

func invalid(format string, args ...any) error {
	return perrors.Validation(format, args...)
}
