package diagram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Document Serialization API
// =============================================================================

// MarshalDocument encodes doc as compact JSON. Nil slices encode as empty
// arrays.
func MarshalDocument(doc Document) ([]byte, error) {
	return json.Marshal(doc.Clone())
}

// UnmarshalDocument decodes a document. Data fields outside the
// persistable attribute set are ignored.
func UnmarshalDocument(data []byte) (Document, error) {
	return readDocumentFrom(bytes.NewReader(data))
}

// WriteDocumentFile writes doc as indented JSON to path.
func WriteDocumentFile(doc Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeDocumentTo(doc, f)
}

// WriteDocument writes doc as indented JSON to w.
func WriteDocument(doc Document, w io.Writer) error {
	return writeDocumentTo(doc, w)
}

// ReadDocumentFile reads a document from a JSON file.
// The file may hold a bare document or a stored record with a "spec" field.
func ReadDocumentFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readDocumentFrom(f)
}

// ReadDocument decodes a document from r.
func ReadDocument(r io.Reader) (Document, error) {
	return readDocumentFrom(r)
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeDocumentTo(doc Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc.Clone()); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readDocumentFrom(r io.Reader) (Document, error) {
	var raw struct {
		Document
		Spec *Document `json:"spec"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Document{}, fmt.Errorf("decode: %w", err)
	}
	if raw.Spec != nil {
		return raw.Spec.Clone(), nil
	}
	return raw.Document.Clone(), nil
}
