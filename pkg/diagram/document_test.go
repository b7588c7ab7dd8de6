package diagram

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
)

func sampleDocument() Document {
	return Document{
		NodeDataArray: []Node{
			{ID: "g1", Kind: KindGroup, Data: Attributes{Role: "Phase 1", Task: "Planning"}},
			{ID: "1", ParentID: Ref("g1"), Kind: KindTask, Data: Attributes{Role: "PM", Task: "Plan", Model: "GPT-4o", Status: StatusInProgress, Comment: "kickoff friday"}, Position: Position{X: 10, Y: 20}},
			{ID: "2", ParentID: Ref("g1"), Kind: KindTask, Data: Attributes{Role: "Dev", Task: "Build", Status: StatusComplete}, Position: Position{X: 300, Y: 20}},
			{ID: "c1", Kind: KindCondition, Data: Attributes{Role: "QA", Task: "Tests pass?"}},
		},
		LinkDataArray: []Edge{
			{ID: "e1", Source: "1", Target: "2"},
			{ID: "e2", Source: "2", Target: "c1", Label: "Yes"},
		},
	}
}

func TestWireShapeIsExact(t *testing.T) {
	doc := Document{
		NodeDataArray: []Node{{
			ID:       "n1",
			Kind:     KindTask,
			Data:     Attributes{Role: "PM", Task: "Plan", Model: "m", Status: StatusComplete, Comment: "c"},
			Position: Position{X: 1.5, Y: 2},
		}},
		LinkDataArray: []Edge{{ID: "e1", Source: "n1", Target: "n1", Label: "Yes"}},
	}

	got, err := MarshalDocument(doc)
	if err != nil {
		t.Fatalf("MarshalDocument() error: %v", err)
	}
	want := `{"nodeDataArray":[{"id":"n1","parentId":null,"type":"task","data":{"role":"PM","task":"Plan","model":"m","status":"complete","comment":"c"},"position":{"x":1.5,"y":2}}],"linkDataArray":[{"id":"e1","source":"n1","target":"n1","label":"Yes"}]}`
	if string(got) != want {
		t.Errorf("MarshalDocument() =\n%s\nwant\n%s", got, want)
	}
}

func TestEmptyDocumentEncodesArrays(t *testing.T) {
	got, err := MarshalDocument(Document{})
	if err != nil {
		t.Fatalf("MarshalDocument() error: %v", err)
	}
	if want := `{"nodeDataArray":[],"linkDataArray":[]}`; string(got) != want {
		t.Errorf("MarshalDocument() = %s, want %s", got, want)
	}
}

func TestUnmarshalGeneratedSpec(t *testing.T) {
	// Generator output: extra data keys, no status/comment, numeric-looking ids.
	raw := `{
	  "nodeDataArray": [
	    {"id": "n1", "parentId": null, "type": "task",
	     "data": {"role": "Backend", "task": "API", "model": "FastAPI", "dependsOn": [], "notes": "what/why/how"},
	     "position": {"x": 0, "y": 0}},
	    {"id": "n2", "parentId": "n1", "type": "condition",
	     "data": {"role": "QA", "task": "Coverage >= 90%?", "model": ""},
	     "position": {"x": 0, "y": 0}}
	  ],
	  "linkDataArray": [{"id": "l1", "source": "n1", "target": "n2", "label": "Yes"}]
	}`

	doc, err := UnmarshalDocument([]byte(raw))
	if err != nil {
		t.Fatalf("UnmarshalDocument() error: %v", err)
	}
	if len(doc.NodeDataArray) != 2 || len(doc.LinkDataArray) != 1 {
		t.Fatalf("got %d nodes, %d edges; want 2, 1", len(doc.NodeDataArray), len(doc.LinkDataArray))
	}
	n1 := doc.NodeDataArray[0]
	if n1.Data.Status != StatusNone || n1.Data.Comment != "" {
		t.Errorf("defaults = %q/%q, want empty status and comment", n1.Data.Status, n1.Data.Comment)
	}
	if n1.ParentID != nil {
		t.Errorf("n1.ParentID = %v, want nil", *n1.ParentID)
	}
	if got := doc.NodeDataArray[1].Parent(); got != "n1" {
		t.Errorf("n2.Parent() = %q, want n1", got)
	}
	if doc.NodeDataArray[1].Kind != KindCondition {
		t.Errorf("n2.Kind = %q, want condition", doc.NodeDataArray[1].Kind)
	}

	out, _ := MarshalDocument(doc)
	if bytes.Contains(out, []byte("dependsOn")) || bytes.Contains(out, []byte("notes")) {
		t.Errorf("non-persistable data keys leaked: %s", out)
	}
}

func TestUnknownKindIsPreserved(t *testing.T) {
	raw := `{"nodeDataArray":[{"id":"x","parentId":null,"type":"milestone","data":{},"position":{"x":0,"y":0}}],"linkDataArray":[]}`
	doc, err := UnmarshalDocument([]byte(raw))
	if err != nil {
		t.Fatalf("UnmarshalDocument() error: %v", err)
	}
	out, _ := MarshalDocument(doc)
	if !bytes.Contains(out, []byte(`"type":"milestone"`)) {
		t.Errorf("kind not preserved: %s", out)
	}
}

func TestAttributeRoundTrip(t *testing.T) {
	doc := sampleDocument()

	nodes, edges := FromDocument(doc)
	for _, n := range nodes {
		if !n.Position.IsZero() {
			t.Errorf("FromDocument() kept position %v for %s", n.Position, n.ID)
		}
	}

	live := Live(nodes)
	live[1].Selected = true
	live[2].Hovered = true
	back := ToDocument(live, edges)

	if !AttributesEqual(doc, back) {
		t.Errorf("round trip changed attributes:\n got %+v\nwant %+v", back, doc)
	}
	if HasPositions(back) {
		t.Error("HasPositions() = true after FromDocument, want false")
	}
}

func TestRoundTripThroughJSON(t *testing.T) {
	doc := sampleDocument()
	data, err := MarshalDocument(doc)
	if err != nil {
		t.Fatalf("MarshalDocument() error: %v", err)
	}
	decoded, err := UnmarshalDocument(data)
	if err != nil {
		t.Fatalf("UnmarshalDocument() error: %v", err)
	}
	again, _ := MarshalDocument(decoded)
	if !bytes.Equal(data, again) {
		t.Errorf("re-encoding differs:\n%s\n%s", data, again)
	}
}

func TestFromDocumentKeepPositions(t *testing.T) {
	doc := sampleDocument()
	nodes, _ := FromDocumentKeepPositions(doc)
	if nodes[1].Position != (Position{X: 10, Y: 20}) {
		t.Errorf("position = %v, want {10 20}", nodes[1].Position)
	}

	// Copies must not alias the source document.
	*nodes[1].ParentID = "changed"
	nodes[1].Data.Role = "changed"
	if doc.NodeDataArray[1].Parent() != "g1" || doc.NodeDataArray[1].Data.Role != "PM" {
		t.Error("FromDocumentKeepPositions() aliases the source document")
	}
}

func TestToDocumentCopiesEdges(t *testing.T) {
	edges := []Edge{{ID: "e1", Source: "a", Target: "b"}}
	doc := ToDocument(Live([]Node{{ID: "a"}, {ID: "b"}}), edges)
	edges[0].Label = "mutated"
	if doc.LinkDataArray[0].Label != "" {
		t.Error("ToDocument() aliases the edge slice")
	}
}

func TestHasPositions(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want bool
	}{
		{"empty", Document{}, false},
		{"all zero", Document{NodeDataArray: []Node{{ID: "a"}, {ID: "b"}}}, false},
		{"one placed", Document{NodeDataArray: []Node{{ID: "a"}, {ID: "b", Position: Position{Y: 5}}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasPositions(tt.doc); got != tt.want {
				t.Errorf("HasPositions() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDocumentValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr bool
	}{
		{"sample", sampleDocument(), false},
		{"empty", Document{}, false},
		{"empty id", Document{NodeDataArray: []Node{{ID: ""}}}, true},
		{"duplicate id", Document{NodeDataArray: []Node{{ID: "a"}, {ID: "a"}}}, true},
		{"dangling target", Document{
			NodeDataArray: []Node{{ID: "a"}},
			LinkDataArray: []Edge{{ID: "e", Source: "a", Target: "b"}},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDocumentFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")

	doc := sampleDocument()
	if err := WriteDocumentFile(doc, path); err != nil {
		t.Fatalf("WriteDocumentFile() error: %v", err)
	}
	got, err := ReadDocumentFile(path)
	if err != nil {
		t.Fatalf("ReadDocumentFile() error: %v", err)
	}
	if !AttributesEqual(doc, got) {
		t.Error("file round trip changed attributes")
	}
	if got.NodeDataArray[1].Position != doc.NodeDataArray[1].Position {
		t.Error("file round trip changed positions")
	}
}

func TestReadDocumentAcceptsRecord(t *testing.T) {
	rec := Diagram{ID: "7", Params: Params{Keyword: "launch", Lang: "en"}, Spec: sampleDocument()}
	data, _ := json.Marshal(rec)
	doc, err := ReadDocument(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadDocument() error: %v", err)
	}
	if len(doc.NodeDataArray) != 4 {
		t.Errorf("nodes = %d, want 4", len(doc.NodeDataArray))
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleDocument())
	if s.Nodes != 4 || s.Edges != 2 {
		t.Errorf("Summarize() counts = %d/%d, want 4/2", s.Nodes, s.Edges)
	}
	if s.InProgress != 1 || s.Complete != 1 || s.Pending() != 2 {
		t.Errorf("Summarize() statuses = %+v", s)
	}
	if s.Commented != 1 {
		t.Errorf("Summarize() commented = %d, want 1", s.Commented)
	}
}
