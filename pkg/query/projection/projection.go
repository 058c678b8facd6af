// Package projection reshapes documents by including, excluding or renaming
// fields.
package projection

import (
	"strings"

	"github.com/adfharrison1/go-docquery/pkg/document"
	"github.com/adfharrison1/go-docquery/pkg/domain"
)

// DefaultIdentity is the identity field kept by inclusion projections unless
// excluded explicitly.
const DefaultIdentity = "_id"

type field struct {
	path   string
	source string // non-empty for computed fields ("alias": "$path")
}

// Projection is a compiled projection document.
type Projection struct {
	include   bool
	fields    []field
	identity  string
	excludeID bool
}

// Option configures Compile.
type Option func(*Projection)

// WithIdentity sets the identity field that inclusion projections keep by
// default.
func WithIdentity(name string) Option {
	return func(p *Projection) {
		p.identity = name
	}
}

// Compile reads a projection document. Inclusion ({"title": 1}) and exclusion
// ({"reviews": 0}) cannot be mixed, except that the identity field may be
// excluded from an inclusion projection. A string value starting with '$'
// copies another field under the given name. A nil or empty document yields
// a nil projection, which leaves documents unchanged.
func Compile(doc *document.Document, opts ...Option) (*Projection, error) {
	if doc == nil || doc.Len() == 0 {
		return nil, nil
	}
	p := &Projection{identity: DefaultIdentity}
	for _, opt := range opts {
		opt(p)
	}

	var includes, excludes int
	for _, path := range doc.Keys() {
		if err := document.ValidatePath(path); err != nil {
			return nil, err
		}
		v, _ := doc.Get(path)

		if s, ok := v.AsString(); ok {
			if !strings.HasPrefix(s, "$") || len(s) < 2 {
				return nil, domain.Validation("projection of %q: computed fields must reference a path as \"$field\"", path)
			}
			if err := document.ValidatePath(s[1:]); err != nil {
				return nil, err
			}
			p.fields = append(p.fields, field{path: path, source: s[1:]})
			includes++
			continue
		}

		switch v.Kind() {
		case document.KindBool, document.KindNumber:
		default:
			return nil, domain.Validation("projection of %q must be 0, 1 or a \"$field\" reference, got %s", path, v)
		}
		if path == p.identity {
			p.excludeID = !v.Truthy()
			continue
		}
		if v.Truthy() {
			includes++
		} else {
			excludes++
		}
		p.fields = append(p.fields, field{path: path})
	}

	if includes > 0 && excludes > 0 {
		return nil, domain.Validation("projection cannot mix inclusion and exclusion")
	}
	for i, a := range p.fields {
		for _, b := range p.fields[i+1:] {
			if a.path == b.path || strings.HasPrefix(a.path, b.path+".") || strings.HasPrefix(b.path, a.path+".") {
				return nil, domain.Validation("projection paths %q and %q conflict", a.path, b.path)
			}
		}
	}
	p.include = includes > 0
	return p, nil
}

// Apply returns the projected copy of doc. A nil projection returns a plain
// copy.
func (p *Projection) Apply(doc *document.Document) *document.Document {
	if p == nil {
		return doc.Clone()
	}
	if !p.include {
		out := doc.Clone()
		if p.excludeID {
			out.Delete(p.identity)
		}
		for _, f := range p.fields {
			document.Unset(out, f.path)
		}
		return out
	}

	out := document.New()
	if !p.excludeID {
		if id, ok := doc.Get(p.identity); ok {
			out.Set(p.identity, id.Clone())
		}
	}
	for _, f := range p.fields {
		source := f.path
		if f.source != "" {
			source = f.source
		}
		v, ok := document.Get(doc, source)
		if !ok {
			continue
		}
		// Paths are valid and disjoint, and out only holds documents built
		// here, so Set cannot fail.
		_ = document.Set(out, f.path, v.Clone())
	}
	return out
}

// ApplyAll projects every document of docs.
func (p *Projection) ApplyAll(docs []*document.Document) []*document.Document {
	out := make([]*document.Document, len(docs))
	for i, d := range docs {
		out[i] = p.Apply(d)
	}
	return out
}
