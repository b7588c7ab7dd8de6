package diagram

import "slices"

// =============================================================================
// Enumerations
// =============================================================================

// Kind is the node variant, serialized as "type".
type Kind string

// Node kinds. The generator also emits condition nodes for Yes/No branches.
// Any other value is preserved verbatim.
const (
	KindTask      Kind = "task"
	KindGroup     Kind = "group"
	KindCondition Kind = "condition"
)

// Status is the progress marker of a task.
type Status string

// Status values. The zero value means no status.
const (
	StatusNone       Status = ""
	StatusInProgress Status = "in-progress"
	StatusComplete   Status = "complete"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNone, StatusInProgress, StatusComplete:
		return true
	}
	return false
}

// String returns the status label, "none" for the empty status.
func (s Status) String() string {
	if s == StatusNone {
		return "none"
	}
	return string(s)
}

// =============================================================================
// Document
// =============================================================================

// Document is the canonical persisted unit.
type Document struct {
	NodeDataArray []Node `json:"nodeDataArray" bson:"nodeDataArray"`
	LinkDataArray []Edge `json:"linkDataArray" bson:"linkDataArray"`
}

// Position is a 2-D coordinate of a node's top-left corner.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// IsZero reports whether p is the origin.
func (p Position) IsZero() bool { return p.X == 0 && p.Y == 0 }

// Attributes is the persistable attribute set of a node.
type Attributes struct {
	Role    string `json:"role" bson:"role"`
	Task    string `json:"task" bson:"task"`
	Model   string `json:"model" bson:"model"`
	Status  Status `json:"status" bson:"status"`
	Comment string `json:"comment" bson:"comment"`
}

// Node is a diagram vertex.
type Node struct {
	ID       string     `json:"id" bson:"id"`
	ParentID *string    `json:"parentId" bson:"parentId"` // weak group reference
	Kind     Kind       `json:"type" bson:"type"`
	Data     Attributes `json:"data" bson:"data"`
	Position Position   `json:"position" bson:"position"`
}

// Parent returns the parent id, or "" when the node has none.
func (n Node) Parent() string {
	if n.ParentID == nil {
		return ""
	}
	return *n.ParentID
}

// clone returns a copy of n that shares no pointers with it.
func (n Node) clone() Node {
	if n.ParentID != nil {
		p := *n.ParentID
		n.ParentID = &p
	}
	return n
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID     string `json:"id" bson:"id"`
	Source string `json:"source" bson:"source"`
	Target string `json:"target" bson:"target"`
	Label  string `json:"label" bson:"label"`
}

// Ref returns a pointer to id, or nil when id is empty. Use it to fill
// [Node.ParentID].
func Ref(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// Clone returns a deep copy of the document. The copy's slices are never
// nil, so it always encodes as JSON arrays.
func (d Document) Clone() Document {
	out := Document{
		NodeDataArray: make([]Node, len(d.NodeDataArray)),
		LinkDataArray: slices.Clone(d.LinkDataArray),
	}
	for i, n := range d.NodeDataArray {
		out.NodeDataArray[i] = n.clone()
	}
	if out.LinkDataArray == nil {
		out.LinkDataArray = []Edge{}
	}
	return out
}

// Node returns the node with the given id.
func (d Document) Node(id string) (Node, bool) {
	for _, n := range d.NodeDataArray {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Validate checks the cascade-delete invariant: node ids are non-empty and
// unique, and every edge endpoint names an existing node.
func (d Document) Validate() error {
	ids := make(map[string]struct{}, len(d.NodeDataArray))
	for i, n := range d.NodeDataArray {
		if n.ID == "" {
			return invalid("node %d has an empty id", i)
		}
		if _, dup := ids[n.ID]; dup {
			return invalid("duplicate node id %q", n.ID)
		}
		ids[n.ID] = struct{}{}
	}
	for _, e := range d.LinkDataArray {
		if _, ok := ids[e.Source]; !ok {
			return invalid("edge %q references unknown source %q", e.ID, e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			return invalid("edge %q references unknown target %q", e.ID, e.Target)
		}
	}
	return nil
}

// =============================================================================
// Live state
// =============================================================================

// LiveNode is a node as held by an editor: the persistable node plus
// transient UI state that is never serialized.
type LiveNode struct {
	Node
	Selected bool
	Hovered  bool
}
