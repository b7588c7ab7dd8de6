package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/planmap/pkg/diagram"
	perrors "github.com/matzehuels/planmap/pkg/errors"
)

func sampleDoc() diagram.Document {
	return diagram.Document{
		NodeDataArray: []diagram.Node{
			{ID: "n1", Kind: diagram.KindTask, Data: diagram.Attributes{Role: "PM", Task: "scope"}},
			{ID: "n2", ParentID: diagram.Ref("n1"), Kind: diagram.KindTask, Data: diagram.Attributes{Role: "Dev", Task: "build"}},
		},
		LinkDataArray: []diagram.Edge{{ID: "e1", Source: "n1", Target: "n2"}},
	}
}

func params() diagram.Params {
	return diagram.Params{Keyword: "launch", Lang: "en", StartDate: "2024-01-01", EndDate: "2024-02-01"}
}

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	c, err := New("http://localhost:8000/", WithTimeout(3*time.Second), WithHeader("Authorization", "Token x"))
	if err != nil {
		t.Fatal(err)
	}
	if c.BaseURL() != "http://localhost:8000" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
	if c.http.Timeout != 3*time.Second {
		t.Errorf("timeout = %v", c.http.Timeout)
	}
	if c.headers["Authorization"] != "Token x" {
		t.Error("header not set")
	}
	if _, err := New("ftp://example.com"); !perrors.IsValidation(err) {
		t.Errorf("New(ftp) error = %v, want INVALID_INPUT", err)
	}
}

func TestGenerate(t *testing.T) {
	var got diagram.Params
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate-plan/" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"nodeDataArray":[{"id":"n1","parentId":null,"type":"condition",
			"data":{"role":"Lead","task":"Go?","model":"","dependsOn":[],"notes":"x"},"position":{"x":0,"y":0}}],
			"linkDataArray":[]}`)
	})

	doc, err := c.Generate(context.Background(), diagram.Params{Keyword: " launch ", Lang: "EN", StartDate: "2024-01-01", EndDate: "2024-02-01"})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if got.Keyword != "launch" || got.Lang != "en" {
		t.Errorf("sent params = %+v, want normalized", got)
	}
	if len(doc.NodeDataArray) != 1 || doc.NodeDataArray[0].Kind != diagram.KindCondition {
		t.Errorf("document = %+v", doc)
	}
	if doc.LinkDataArray == nil {
		t.Error("LinkDataArray should be non-nil")
	}
}

func TestGenerateValidatesBeforeRequest(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	bad := []diagram.Params{
		{Keyword: "", StartDate: "2024-01-01", EndDate: "2024-02-01"},
		{Keyword: "x", Lang: "fr", StartDate: "2024-01-01", EndDate: "2024-02-01"},
		{Keyword: "x", StartDate: "2024-02-01", EndDate: "2024-01-01"},
		{Keyword: "x", StartDate: "yesterday", EndDate: "2024-01-01"},
	}
	for _, p := range bad {
		if _, err := c.Generate(context.Background(), p); !perrors.IsValidation(err) {
			t.Errorf("Generate(%+v) error = %v, want INVALID_INPUT", p, err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("server received %d requests, want 0", calls.Load())
	}
}

func TestGenerateError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Please enter a keyword."}`)
	})
	_, err := c.Generate(context.Background(), params())
	if !perrors.IsNetwork(err) {
		t.Fatalf("error = %v, want NETWORK_ERROR", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != 400 || se.Message != "Please enter a keyword." {
		t.Errorf("cause = %+v", se)
	}
	if !strings.Contains(perrors.UserMessage(err), "Please enter a keyword.") {
		t.Errorf("UserMessage = %q", perrors.UserMessage(err))
	}
}

func TestCreate(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/diagrams/" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var body map[string]json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, k := range []string{"keyword", "lang", "start_date", "end_date", "spec"} {
			if _, ok := body[k]; !ok {
				t.Errorf("request body missing %q", k)
			}
		}
		w.WriteHeader(http.StatusCreated)
		// Django emits integer ids.
		_, _ = io.WriteString(w, `{"id":17,"keyword":"launch","lang":"en","start_date":"2024-01-01","end_date":"2024-02-01","spec":`+string(body["spec"])+`}`)
	})

	rec, err := c.Create(context.Background(), params(), sampleDoc())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if rec.ID != "17" || rec.Keyword != "launch" {
		t.Errorf("record = %+v", rec)
	}
	if !diagram.AttributesEqual(rec.Spec, sampleDoc()) {
		t.Errorf("spec = %+v", rec.Spec)
	}
}

func TestCreateWithoutID(t *testing.T) {
	for name, body := range map[string]string{"empty object": `{}`, "empty body": ``} {
		t.Run(name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				_, _ = io.WriteString(w, body)
			})

			rec, err := c.Create(context.Background(), params(), sampleDoc())
			if !perrors.IsNetwork(err) {
				t.Fatalf("Create() error = %v, want NETWORK_ERROR", err)
			}
			if StatusCode(err) != http.StatusCreated {
				t.Errorf("StatusCode = %d, want 201", StatusCode(err))
			}
			if !strings.Contains(err.Error(), "no diagram id") {
				t.Errorf("error = %v", err)
			}
			if rec.ID != "" {
				t.Errorf("record id = %q, want empty", rec.ID)
			}
		})
	}
}

func TestFetch(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/diagrams/17/":
			spec, _ := json.Marshal(sampleDoc())
			_, _ = io.WriteString(w, `{"id":"17","keyword":"launch","lang":"en","start_date":"2024-01-01","end_date":"2024-02-01","spec":`+string(spec)+`,"revision":3}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"Not found."}`)
		}
	})

	rec, err := c.Fetch(context.Background(), "17")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if rec.Revision != 3 || len(rec.Spec.NodeDataArray) != 2 {
		t.Errorf("record = %+v", rec)
	}

	_, err = c.Fetch(context.Background(), "99")
	if !perrors.IsNetwork(err) || StatusCode(err) != http.StatusNotFound {
		t.Errorf("Fetch(99) error = %v, want NETWORK_ERROR 404", err)
	}
	if !strings.Contains(err.Error(), "Not found.") {
		t.Errorf("error %q should carry the detail", err)
	}

	if _, err := c.Fetch(context.Background(), "../etc"); !perrors.IsValidation(err) {
		t.Errorf("Fetch(../etc) error = %v, want INVALID_INPUT", err)
	}
}

func TestPatch(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"json record", `{"id":5,"keyword":"k","lang":"en","start_date":"2024-01-01","end_date":"2024-01-02","spec":{"nodeDataArray":[],"linkDataArray":[]}}`},
		{"empty body", ``},
		{"non json body", `ok`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var spec diagram.Document
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPatch || r.URL.Path != "/api/diagrams/5/" {
					t.Errorf("request = %s %s", r.Method, r.URL.Path)
				}
				var body struct {
					Spec diagram.Document `json:"spec"`
				}
				_ = json.NewDecoder(r.Body).Decode(&body)
				spec = body.Spec
				_, _ = io.WriteString(w, tt.body)
			})
			rec, err := c.Patch(context.Background(), "5", sampleDoc())
			if err != nil {
				t.Fatalf("Patch() error: %v", err)
			}
			if rec.ID != "5" {
				t.Errorf("record id = %q", rec.ID)
			}
			if !diagram.AttributesEqual(spec, sampleDoc()) {
				t.Errorf("server received %+v", spec)
			}
		})
	}
}

func TestPatchRevisionHeader(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(RevisionHeader); got != "12" {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"detail":"stale revision"}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if _, err := c.PatchRevision(context.Background(), "5", sampleDoc(), 12); err != nil {
		t.Errorf("PatchRevision(12) error: %v", err)
	}
	_, err := c.PatchRevision(context.Background(), "5", sampleDoc(), 11)
	if StatusCode(err) != http.StatusConflict {
		t.Errorf("PatchRevision(11) error = %v, want 409", err)
	}
}

func TestNoRetry(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if _, err := c.Patch(context.Background(), "1", sampleDoc()); !perrors.IsNetwork(err) {
		t.Errorf("error = %v, want NETWORK_ERROR", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Fetch(context.Background(), "1")
	if !perrors.IsNetwork(err) {
		t.Fatalf("error = %v, want NETWORK_ERROR", err)
	}
	if StatusCode(err) != 0 {
		t.Errorf("StatusCode = %d, want 0 for transport failure", StatusCode(err))
	}
}

func TestMalformedFetchBody(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>proxy error</html>`)
	})
	if _, err := c.Fetch(context.Background(), "1"); !perrors.IsNetwork(err) {
		t.Errorf("error = %v, want NETWORK_ERROR", err)
	}
}
