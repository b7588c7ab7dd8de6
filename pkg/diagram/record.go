package diagram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	perrors "github.com/matzehuels/planmap/pkg/errors"
)

// Plan languages.
const (
	LangKorean  = "ko"
	LangEnglish = "en"
)

// Params are the generation inputs stored alongside a diagram.
type Params struct {
	Keyword   string `json:"keyword" bson:"keyword"`
	Lang      string `json:"lang" bson:"lang"`
	StartDate string `json:"start_date" bson:"start_date"`
	EndDate   string `json:"end_date" bson:"end_date"`
}

// Normalize trims whitespace, lowercases the language and defaults it to
// English.
func (p Params) Normalize() Params {
	p.Keyword = strings.TrimSpace(p.Keyword)
	p.Lang = strings.ToLower(strings.TrimSpace(p.Lang))
	if p.Lang == "" {
		p.Lang = LangEnglish
	}
	p.StartDate = strings.TrimSpace(p.StartDate)
	p.EndDate = strings.TrimSpace(p.EndDate)
	return p
}

// Validate returns a validation error when a required field is missing or
// malformed. Call Normalize first to apply defaults.
func (p Params) Validate() error {
	if err := perrors.ValidateKeyword(p.Keyword); err != nil {
		return err
	}
	if err := perrors.ValidateLang(p.Lang); err != nil {
		return err
	}
	return perrors.ValidateDateRange(p.StartDate, p.EndDate)
}

// ID is a diagram identifier. It decodes from a JSON string or number and
// always encodes as a string.
type ID string

// String returns the id as a string.
func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts "42" and 42 alike.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("diagram id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Diagram is a stored diagram record.
type Diagram struct {
	ID        ID `json:"id" bson:"_id"`
	Params    `bson:",inline"`
	Spec      Document  `json:"spec" bson:"spec"`
	Revision  int64     `json:"revision,omitempty" bson:"revision"`
	CreatedAt time.Time `json:"created_at,omitzero" bson:"created_at"`
}
