package diagram

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	perrors "github.com/matzehuels/planmap/pkg/errors"
)

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		input   string
		want    ID
		wantErr bool
	}{
		{`"abc"`, "abc", false},
		{`42`, "42", false},
		{`"42"`, "42", false},
		{`null`, "", false},
		{`true`, "", true},
		{`{}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var id ID
			err := json.Unmarshal([]byte(tt.input), &id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && id != tt.want {
				t.Errorf("Unmarshal(%s) = %q, want %q", tt.input, id, tt.want)
			}
		})
	}
}

func TestDiagramJSON(t *testing.T) {
	// Django-style response: numeric id, no revision.
	raw := `{"id": 12, "keyword": "launch", "lang": "en", "start_date": "2024-01-01", "end_date": "2024-02-01",
	         "spec": {"nodeDataArray": [], "linkDataArray": []}}`
	var d Diagram
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if d.ID != "12" || d.Keyword != "launch" || d.EndDate != "2024-02-01" {
		t.Errorf("decoded = %+v", d)
	}

	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `"id":"12"`) {
		t.Errorf("id not encoded as string: %s", s)
	}
	if strings.Contains(s, "revision") || strings.Contains(s, "created_at") {
		t.Errorf("zero revision/created_at should be omitted: %s", s)
	}

	d.Revision = 3
	d.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out, _ = json.Marshal(d)
	if !strings.Contains(string(out), `"revision":3`) || !strings.Contains(string(out), `"created_at":"2024-01-01T00:00:00Z"`) {
		t.Errorf("revision/created_at missing: %s", out)
	}
}

func TestParamsNormalize(t *testing.T) {
	p := Params{Keyword: "  launch ", Lang: " EN ", StartDate: "2024-01-01 ", EndDate: " 2024-02-01"}.Normalize()
	want := Params{Keyword: "launch", Lang: "en", StartDate: "2024-01-01", EndDate: "2024-02-01"}
	if p != want {
		t.Errorf("Normalize() = %+v, want %+v", p, want)
	}
	if got := (Params{}).Normalize().Lang; got != LangEnglish {
		t.Errorf("default lang = %q, want %q", got, LangEnglish)
	}
}

func TestParamsValidate(t *testing.T) {
	valid := Params{Keyword: "launch", Lang: "en", StartDate: "2024-01-01", EndDate: "2024-02-01"}
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr bool
	}{
		{"valid", func(*Params) {}, false},
		{"korean", func(p *Params) { p.Lang = "ko" }, false},
		{"no keyword", func(p *Params) { p.Keyword = "" }, true},
		{"bad lang", func(p *Params) { p.Lang = "de" }, true},
		{"no start", func(p *Params) { p.StartDate = "" }, true},
		{"reversed", func(p *Params) { p.StartDate, p.EndDate = p.EndDate, p.StartDate }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !perrors.IsValidation(err) {
				t.Errorf("Validate() code = %v, want validation", perrors.GetCode(err))
			}
		})
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusNone, StatusInProgress, StatusComplete} {
		if !s.Valid() {
			t.Errorf("%q.Valid() = false", s)
		}
	}
	if Status("done").Valid() {
		t.Error(`"done".Valid() = true`)
	}
	if StatusNone.String() != "none" {
		t.Errorf("StatusNone.String() = %q", StatusNone.String())
	}
}
