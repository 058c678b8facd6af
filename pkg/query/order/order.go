// Package order sorts document sequences by one or more field paths.
package order

import (
	"sort"

	"github.com/adfharrison1/go-docquery/pkg/document"
	"github.com/adfharrison1/go-docquery/pkg/domain"
)

// Key is one sort criterion.
type Key struct {
	Path       string
	Descending bool
}

// Spec is an ordered list of sort keys; earlier keys take precedence.
type Spec []Key

// Asc and Desc build single sort keys.
func Asc(path string) Key  { return Key{Path: path} }
func Desc(path string) Key { return Key{Path: path, Descending: true} }

// Compile reads a sort document such as {"price": -1, "title": 1}. Field
// order in the document is the key precedence. A nil document yields an
// empty spec.
func Compile(doc *document.Document) (Spec, error) {
	if doc == nil {
		return nil, nil
	}
	spec := make(Spec, 0, doc.Len())
	for _, path := range doc.Keys() {
		if err := document.ValidatePath(path); err != nil {
			return nil, err
		}
		v, _ := doc.Get(path)
		dir, ok := v.AsInt()
		if !ok || (dir != 1 && dir != -1) {
			return nil, domain.Validation("sort direction for %q must be 1 or -1, got %s", path, v)
		}
		spec = append(spec, Key{Path: path, Descending: dir == -1})
	}
	return spec, nil
}

// Document renders the spec as a sort document.
func (s Spec) Document() *document.Document {
	out := document.New()
	for _, k := range s {
		dir := 1
		if k.Descending {
			dir = -1
		}
		out.Set(k.Path, document.Int(dir))
	}
	return out
}

// Compare orders a and b by the spec. Absent fields sort as null.
func (s Spec) Compare(a, b *document.Document) int {
	for _, k := range s {
		va, _ := document.Get(a, k.Path)
		vb, _ := document.Get(b, k.Path)
		cmp := document.Compare(va, vb)
		if cmp == 0 {
			continue
		}
		if k.Descending {
			return -cmp
		}
		return cmp
	}
	return 0
}

// Sort orders docs in place. The sort is stable: documents that compare
// equal keep their relative order.
func Sort(docs []*document.Document, spec Spec) {
	if len(spec) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return spec.Compare(docs[i], docs[j]) < 0
	})
}
