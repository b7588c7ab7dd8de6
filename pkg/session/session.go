// Package session holds the live state of a diagram being edited.
//
// A [Session] owns the nodes, edges and transient selection of one
// diagram. Every mutating operation updates that state, serializes it with
// [diagram.ToDocument] and hands a [Snapshot] to a [Sink], in mutation
// order, while still holding the session lock. Selection and hover changes
// are local and never dispatched.
//
// [Syncer] is the sink used in practice: a single worker that forwards the
// latest snapshot to the remote store.
package session

import (
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/planmap/pkg/diagram"
	perrors "github.com/matzehuels/planmap/pkg/errors"
)

// Snapshot is one serialized state of a session.
type Snapshot struct {
	Revision int64
	Document diagram.Document
}

// Sink receives snapshots. Dispatch is called with the session lock held
// and must not call back into the session.
type Sink interface {
	Dispatch(Snapshot)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Snapshot)

// Dispatch calls f(s).
func (f SinkFunc) Dispatch(s Snapshot) { f(s) }

// NewNode describes a node to add. Role and Task are required.
type NewNode struct {
	Role     string
	Task     string
	Model    string
	Position diagram.Position
	Kind     diagram.Kind // defaults to task
	ParentID string
}

// Patch lists the attributes to overwrite; nil fields are left alone.
type Patch struct {
	Role    *string
	Task    *string
	Model   *string
	Status  *diagram.Status
	Comment *string
}

// Session is the editable state of one diagram. It is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	nodes    []diagram.LiveNode
	edges    []diagram.Edge
	selected string
	hovered  string
	rev      int64

	sink   Sink
	newID  func() string
	logger *log.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithIDFunc replaces the id generator used for new nodes and edges.
func WithIDFunc(fn func() string) Option {
	return func(s *Session) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithRevision sets the revision the session starts from, usually the
// revision of the fetched record. The first mutation dispatches rev+1.
func WithRevision(rev int64) Option {
	return func(s *Session) { s.rev = rev }
}

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewID returns a time-ordered UUID (v7) string.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// New starts a session over nodes and edges, typically the output of the
// layout adapter. The inputs are copied. A nil sink discards snapshots.
func New(nodes []diagram.Node, edges []diagram.Edge, sink Sink, opts ...Option) *Session {
	if sink == nil {
		sink = SinkFunc(func(Snapshot) {})
	}
	s := &Session{
		nodes:  diagram.Live(nodes),
		edges:  slices.Clone(edges),
		sink:   sink,
		newID:  NewID,
		logger: log.New(io.Discard),
	}
	if s.edges == nil {
		s.edges = []diagram.Edge{}
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// commit bumps the revision and dispatches the current state. Callers hold mu.
func (s *Session) commit(op string) {
	s.rev++
	snap := Snapshot{Revision: s.rev, Document: diagram.ToDocument(s.nodes, s.edges)}
	s.logger.Debug("dispatch", "op", op, "revision", snap.Revision,
		"nodes", len(snap.Document.NodeDataArray), "edges", len(snap.Document.LinkDataArray))
	s.sink.Dispatch(snap)
}

func (s *Session) index(id string) int {
	return slices.IndexFunc(s.nodes, func(n diagram.LiveNode) bool { return n.ID == id })
}

func (s *Session) edgeIndex(id string) int {
	return slices.IndexFunc(s.edges, func(e diagram.Edge) bool { return e.ID == id })
}

// Move sets the position of node id. It reports false, without
// dispatching, when the node does not exist.
func (s *Session) Move(id string, pos diagram.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return false
	}
	s.nodes[i].Position = pos
	s.commit("move")
	return true
}

// Add appends a task node with a fresh id, empty status and empty comment.
// Role and task are trimmed; if either ends up empty a ValidationError is
// returned and nothing changes.
func (s *Session) Add(n NewNode) (diagram.Node, error) {
	role, task := strings.TrimSpace(n.Role), strings.TrimSpace(n.Task)
	if role == "" || task == "" {
		return diagram.Node{}, perrors.Validation("role and task are required")
	}
	kind := n.Kind
	if kind == "" {
		kind = diagram.KindTask
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node := diagram.Node{
		ID:       s.newID(),
		ParentID: diagram.Ref(n.ParentID),
		Kind:     kind,
		Data: diagram.Attributes{
			Role:  role,
			Task:  task,
			Model: strings.TrimSpace(n.Model),
		},
		Position: n.Position,
	}
	s.nodes = append(s.nodes, diagram.LiveNode{Node: node})
	s.commit("add")
	return node, nil
}

// Delete removes node id and every edge touching it. Other edges are kept
// in order. A selected or hovered node is cleared from that state.
func (s *Session) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return false
	}
	s.nodes = slices.Delete(s.nodes, i, i+1)
	s.edges = slices.DeleteFunc(s.edges, func(e diagram.Edge) bool {
		return e.Source == id || e.Target == id
	})
	if s.selected == id {
		s.selected = ""
	}
	if s.hovered == id {
		s.hovered = ""
	}
	s.commit("delete")
	return true
}

// Edit merges the non-nil fields of p into node id. It reports false when
// the node does not exist and returns a ValidationError for an unknown
// status, in both cases without changing anything.
func (s *Session) Edit(id string, p Patch) (bool, error) {
	if p.Status != nil && !p.Status.Valid() {
		return false, perrors.Validation("unknown status %q", string(*p.Status))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return false, nil
	}
	d := &s.nodes[i].Data
	if p.Role != nil {
		d.Role = *p.Role
	}
	if p.Task != nil {
		d.Task = *p.Task
	}
	if p.Model != nil {
		d.Model = *p.Model
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.Comment != nil {
		d.Comment = *p.Comment
	}
	s.commit("edit")
	return true, nil
}

// Connect adds an unlabeled edge from source to target. Parallel edges
// are allowed and get distinct ids.
func (s *Session) Connect(source, target string) (diagram.Edge, error) {
	return s.ConnectLabeled(source, target, "")
}

// ConnectLabeled adds an edge carrying label, such as "Yes" or "No" on a
// condition branch. Both endpoints must exist.
func (s *Session) ConnectLabeled(source, target, label string) (diagram.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(source) < 0 {
		return diagram.Edge{}, perrors.Validation("unknown source node %q", source)
	}
	if s.index(target) < 0 {
		return diagram.Edge{}, perrors.Validation("unknown target node %q", target)
	}
	e := diagram.Edge{ID: s.newID(), Source: source, Target: target, Label: label}
	s.edges = append(s.edges, e)
	s.commit("connect")
	return e, nil
}

// DeleteEdge removes edge id.
func (s *Session) DeleteEdge(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.edgeIndex(id)
	if i < 0 {
		return false
	}
	s.edges = slices.Delete(s.edges, i, i+1)
	s.commit("delete-edge")
	return true
}

// LabelEdge sets the label of edge id.
func (s *Session) LabelEdge(id, label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.edgeIndex(id)
	if i < 0 {
		return false
	}
	s.edges[i].Label = label
	s.commit("label-edge")
	return true
}

// Select marks node id as the single selected node. Local only.
func (s *Session) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(id) < 0 {
		return false
	}
	s.selected = id
	return true
}

// Deselect clears the selection. Local only.
func (s *Session) Deselect() {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
}

// Hover marks node id as hovered; an empty or unknown id clears it. Local only.
func (s *Session) Hover(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(id) < 0 {
		id = ""
	}
	s.hovered = id
}

// Selected returns the selected node id.
func (s *Session) Selected() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != ""
}

// Revision returns the revision of the last dispatched snapshot.
func (s *Session) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}

// Nodes returns a copy of the nodes in order.
func (s *Session) Nodes() []diagram.Node {
	return s.Document().NodeDataArray
}

// LiveNodes returns a copy of the nodes with selection and hover flags set.
func (s *Session) LiveNodes() []diagram.LiveNode {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := diagram.Live(diagram.ToDocument(s.nodes, nil).NodeDataArray)
	for i := range out {
		out[i].Selected = out[i].ID == s.selected
		out[i].Hovered = out[i].ID == s.hovered
	}
	return out
}

// Edges returns a copy of the edges in order.
func (s *Session) Edges() []diagram.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.edges)
}

// Document serializes the current state without dispatching it.
func (s *Session) Document() diagram.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return diagram.ToDocument(s.nodes, s.edges)
}

// Summary counts the current nodes, edges and statuses.
func (s *Session) Summary() diagram.Summary {
	return diagram.Summarize(s.Document())
}
