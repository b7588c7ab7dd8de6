package diagram

// Summary holds the counts shown next to a diagram.
type Summary struct {
	Nodes      int
	Edges      int
	InProgress int
	Complete   int
	Commented  int
}

// Pending returns the number of nodes that have no status yet.
func (s Summary) Pending() int { return s.Nodes - s.InProgress - s.Complete }

// Summarize counts nodes, edges and statuses in doc.
func Summarize(doc Document) Summary {
	s := Summary{Nodes: len(doc.NodeDataArray), Edges: len(doc.LinkDataArray)}
	for _, n := range doc.NodeDataArray {
		switch n.Data.Status {
		case StatusInProgress:
			s.InProgress++
		case StatusComplete:
			s.Complete++
		}
		if n.Data.Comment != "" {
			s.Commented++
		}
	}
	return s
}
