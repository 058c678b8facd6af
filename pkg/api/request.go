package api

import (
	"bytes"
	"io"
	"net/http"

	"github.com/adfharrison1/go-docquery/pkg/document"
	"github.com/adfharrison1/go-docquery/pkg/domain"
)

// maxBodyBytes bounds the size of a request body.
const maxBodyBytes = 16 << 20

// readDocument parses the request body as a JSON document, keeping field
// order. Relaxed MongoDB Extended JSON is accepted.
func readDocument(w http.ResponseWriter, r *http.Request) (*document.Document, error) {
	doc, err := readOptionalDocument(w, r)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.Validation("request body must be a JSON document")
	}
	return doc, nil
}

// readOptionalDocument is readDocument for endpoints where an empty body is
// allowed. It returns nil for an empty body.
func readOptionalDocument(w http.ResponseWriter, r *http.Request) (*document.Document, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.ValidationCause(err, "failed to read request body")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return document.ParseJSON(data)
}

// readOptions reads a body of optional request fields. An empty body yields
// an empty document.
func readOptions(w http.ResponseWriter, r *http.Request, allowed ...string) (*document.Document, error) {
	body, err := readOptionalDocument(w, r)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return document.New(), nil
	}
	if err := checkFields(body, allowed...); err != nil {
		return nil, err
	}
	return body, nil
}

// checkFields rejects body fields outside allowed, which are usually typos.
func checkFields(body *document.Document, allowed ...string) error {
	for _, key := range body.Keys() {
		known := false
		for _, a := range allowed {
			if key == a {
				known = true
				break
			}
		}
		if !known {
			return domain.Validation("unknown request field %q", key)
		}
	}
	return nil
}

// documentField returns the document under name, or nil when the field is
// absent or null.
func documentField(body *document.Document, name string) (*document.Document, error) {
	v, ok := body.Get(name)
	if !ok || v.IsNull() {
		return nil, nil
	}
	d, ok := v.AsObject()
	if !ok {
		return nil, domain.Validation("%s must be a document, got %s", name, v.Kind())
	}
	return d, nil
}

func intField(body *document.Document, name string) (int, error) {
	v, ok := body.Get(name)
	if !ok || v.IsNull() {
		return 0, nil
	}
	n, ok := v.AsInt()
	if !ok {
		return 0, domain.Validation("%s must be an integer, got %s", name, v)
	}
	return n, nil
}

func boolField(body *document.Document, name string) (bool, error) {
	v, ok := body.Get(name)
	if !ok || v.IsNull() {
		return false, nil
	}
	b, ok := v.AsBool()
	if !ok {
		return false, domain.Validation("%s must be a boolean, got %s", name, v.Kind())
	}
	return b, nil
}

func arrayField(body *document.Document, name string) ([]document.Value, error) {
	v, ok := body.Get(name)
	if !ok {
		return nil, domain.Validation("%s is required", name)
	}
	elems, ok := v.AsArray()
	if !ok {
		return nil, domain.Validation("%s must be an array, got %s", name, v.Kind())
	}
	return elems, nil
}

// documentsResponse wraps a document list. It never encodes as null.
type documentsResponse struct {
	Documents []*document.Document `json:"documents"`
	Count     int                  `json:"count"`
}

func newDocumentsResponse(docs []*document.Document) documentsResponse {
	if docs == nil {
		docs = []*document.Document{}
	}
	return documentsResponse{Documents: docs, Count: len(docs)}
}
