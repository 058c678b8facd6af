// Package collection implements an ordered, in-memory set of documents with
// find, update, delete and aggregate operations.
//
// A Collection is not safe for concurrent use. Hosts that share one between
// goroutines must guard it with their own lock; the storage package does so
// with one RWMutex per collection.
package collection

import (
	"strings"

	"github.com/google/uuid"

	"github.com/adfharrison1/go-docquery/pkg/document"
	"github.com/adfharrison1/go-docquery/pkg/domain"
	"github.com/adfharrison1/go-docquery/pkg/query/aggregate"
	"github.com/adfharrison1/go-docquery/pkg/query/filter"
	"github.com/adfharrison1/go-docquery/pkg/query/order"
	"github.com/adfharrison1/go-docquery/pkg/query/projection"
	"github.com/adfharrison1/go-docquery/pkg/query/update"
)

// DefaultIdentity is the identity field used when none is configured.
const DefaultIdentity = "_id"

// Collection owns its documents exclusively: inserted documents are copied in
// and every read returns copies.
type Collection struct {
	name     string
	identity string
	newID    func() document.Value

	docs []*document.Document
	ids  map[string]*document.Document
}

// Option configures a Collection.
type Option func(*Collection)

// WithIdentity sets the identity field, e.g. "book_id" or "roll_no".
func WithIdentity(field string) Option {
	return func(c *Collection) {
		if field != "" {
			c.identity = field
		}
	}
}

// WithIDGenerator replaces the UUID generator used for documents inserted
// without an identity.
func WithIDGenerator(fn func() document.Value) Option {
	return func(c *Collection) {
		c.newID = fn
	}
}

// New creates an empty collection.
func New(name string, opts ...Option) *Collection {
	c := &Collection{
		name:     name,
		identity: DefaultIdentity,
		newID:    func() document.Value { return document.String(uuid.NewString()) },
		ids:      make(map[string]*document.Document),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Collection) Name() string { return c.name }

// Identity returns the name of the identity field.
func (c *Collection) Identity() string { return c.identity }

// Len returns the number of stored documents.
func (c *Collection) Len() int { return len(c.docs) }

// idKey maps an identity value to its index key.
func idKey(id document.Value) string {
	return id.Kind().String() + ":" + id.String()
}

func validID(id document.Value) bool {
	switch id.Kind() {
	case document.KindString, document.KindNumber:
		return true
	}
	return false
}

// prepare copies doc for storage, placing the identity field first and
// generating it when missing.
func (c *Collection) prepare(doc *document.Document) (*document.Document, document.Value, error) {
	if doc == nil {
		return nil, document.Value{}, domain.Validation("document cannot be nil")
	}
	id, ok := doc.Get(c.identity)
	if !ok {
		id = c.newID()
	} else if !validID(id) {
		return nil, document.Value{}, domain.Validation("identity field %q must be a string or number, got %s", c.identity, id.Kind())
	}

	out := document.NewWith(document.F(c.identity, id))
	doc.Range(func(k string, v document.Value) bool {
		if k != c.identity {
			out.Set(k, v.Clone())
		}
		return true
	})
	return out, id, nil
}

// Insert stores a copy of doc and returns its identity.
func (c *Collection) Insert(doc *document.Document) (document.Value, error) {
	stored, id, err := c.prepare(doc)
	if err != nil {
		return document.Value{}, err
	}
	if _, exists := c.ids[idKey(id)]; exists {
		return document.Value{}, domain.DuplicateKey("%s %s already exists in collection %s", c.identity, id, c.name)
	}
	c.docs = append(c.docs, stored)
	c.ids[idKey(id)] = stored
	return id, nil
}

// InsertMany validates every document before storing any of them.
func (c *Collection) InsertMany(docs []*document.Document) ([]document.Value, error) {
	prepared := make([]*document.Document, len(docs))
	ids := make([]document.Value, len(docs))
	batch := make(map[string]bool, len(docs))

	for i, doc := range docs {
		stored, id, err := c.prepare(doc)
		if err != nil {
			return nil, domain.ValidationCause(err, "document %d", i)
		}
		key := idKey(id)
		if _, exists := c.ids[key]; exists || batch[key] {
			return nil, domain.DuplicateKey("document %d: %s %s already exists in collection %s", i, c.identity, id, c.name)
		}
		batch[key] = true
		prepared[i], ids[i] = stored, id
	}

	for _, stored := range prepared {
		id, _ := stored.Get(c.identity)
		c.docs = append(c.docs, stored)
		c.ids[idKey(id)] = stored
	}
	return ids, nil
}

// FindOptions shapes a find result. They are applied after filtering, in
// the order sort, skip, limit, projection.
type FindOptions struct {
	Sort order.Spec
	domain.PageOptions
	Projection *projection.Projection
}

// Find returns copies of the matching documents. A nil expression matches
// every document; nil options return matches in insertion order.
func (c *Collection) Find(expr filter.Expr, opts *FindOptions) ([]*document.Document, error) {
	if opts == nil {
		opts = &FindOptions{}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var matched []*document.Document
	for _, d := range c.docs {
		if filter.Matches(d, expr) {
			matched = append(matched, d)
		}
	}

	order.Sort(matched, opts.Sort)
	start, end := opts.Window(len(matched))
	matched = matched[start:end]

	out := make([]*document.Document, len(matched))
	for i, d := range matched {
		out[i] = opts.Projection.Apply(d)
	}
	return out, nil
}

// FindOne returns a copy of the first matching document in insertion order.
func (c *Collection) FindOne(expr filter.Expr) (*document.Document, bool) {
	for _, d := range c.docs {
		if filter.Matches(d, expr) {
			return d.Clone(), true
		}
	}
	return nil, false
}

// FindByID returns a copy of the document with the given identity.
func (c *Collection) FindByID(id document.Value) (*document.Document, error) {
	d, ok := c.ids[idKey(id)]
	if !ok {
		return nil, c.notFound(id)
	}
	return d.Clone(), nil
}

// HasID reports whether a document with the given identity exists.
func (c *Collection) HasID(id document.Value) bool {
	_, ok := c.ids[idKey(id)]
	return ok
}

// Count returns the number of matching documents.
func (c *Collection) Count(expr filter.Expr) int {
	n := 0
	for _, d := range c.docs {
		if filter.Matches(d, expr) {
			n++
		}
	}
	return n
}

func (c *Collection) notFound(id document.Value) error {
	return domain.NotFound("no document with %s %s in collection %s", c.identity, id, c.name)
}

// CompileUpdate compiles an update document, rejecting changes to the
// identity field.
func (c *Collection) CompileUpdate(doc *document.Document) (*update.Spec, error) {
	return update.Compile(doc, update.Protect(c.identity))
}

// UpdateOne applies spec to the first matching document.
func (c *Collection) UpdateOne(expr filter.Expr, spec *update.Spec) (int, error) {
	return c.update(expr, spec, false)
}

// UpdateMany applies spec to every matching document and returns how many
// actually changed. Each document is committed before the next is processed,
// so on error the documents already updated keep their new content and the
// failing document is left untouched.
func (c *Collection) UpdateMany(expr filter.Expr, spec *update.Spec) (int, error) {
	return c.update(expr, spec, true)
}

func (c *Collection) update(expr filter.Expr, spec *update.Spec, multi bool) (int, error) {
	if err := c.checkSpec(spec); err != nil {
		return 0, err
	}
	modified := 0
	for i, d := range c.docs {
		if !filter.Matches(d, expr) {
			continue
		}
		changed, err := c.commit(i, spec)
		if err != nil {
			return modified, err
		}
		if changed {
			modified++
		}
		if !multi {
			break
		}
	}
	return modified, nil
}

func (c *Collection) checkSpec(spec *update.Spec) error {
	if spec == nil {
		return domain.Validation("update spec cannot be nil")
	}
	for _, path := range spec.Paths() {
		if path == c.identity || strings.HasPrefix(path, c.identity+".") {
			return domain.Validation("cannot modify identity field %q", c.identity)
		}
	}
	return nil
}

// commit applies spec to the document at position i and swaps in the result.
func (c *Collection) commit(i int, spec *update.Spec) (bool, error) {
	old := c.docs[i]
	updated, err := update.Apply(old, spec)
	if err != nil {
		return false, err
	}
	if updated.Equal(old) {
		return false, nil
	}
	id, _ := old.Get(c.identity)
	c.docs[i] = updated
	c.ids[idKey(id)] = updated
	return true, nil
}

func (c *Collection) position(id document.Value) (int, bool) {
	d, ok := c.ids[idKey(id)]
	if !ok {
		return 0, false
	}
	for i, stored := range c.docs {
		if stored == d {
			return i, true
		}
	}
	return 0, false
}

// UpdateByID applies spec to one document and returns a copy of the result.
func (c *Collection) UpdateByID(id document.Value, spec *update.Spec) (*document.Document, error) {
	if err := c.checkSpec(spec); err != nil {
		return nil, err
	}
	i, ok := c.position(id)
	if !ok {
		return nil, c.notFound(id)
	}
	if _, err := c.commit(i, spec); err != nil {
		return nil, err
	}
	return c.docs[i].Clone(), nil
}

// ReplaceByID replaces the content of a document, keeping its identity and
// position. The replacement may omit the identity field but cannot change it.
func (c *Collection) ReplaceByID(id document.Value, doc *document.Document) (*document.Document, error) {
	i, ok := c.position(id)
	if !ok {
		return nil, c.notFound(id)
	}
	if doc == nil {
		return nil, domain.Validation("replacement document cannot be nil")
	}
	if newID, ok := doc.Get(c.identity); ok && !newID.Equal(id) {
		return nil, domain.Validation("replacement cannot change %s from %s to %s", c.identity, id, newID)
	}

	replacement := document.NewWith(document.F(c.identity, id))
	doc.Range(func(k string, v document.Value) bool {
		if k != c.identity {
			replacement.Set(k, v.Clone())
		}
		return true
	})
	c.docs[i] = replacement
	c.ids[idKey(id)] = replacement
	return replacement.Clone(), nil
}

// DeleteOne removes the first matching document.
func (c *Collection) DeleteOne(expr filter.Expr) int {
	return c.delete(expr, false)
}

// DeleteMany removes every matching document. Remaining documents keep their
// relative order.
func (c *Collection) DeleteMany(expr filter.Expr) int {
	return c.delete(expr, true)
}

func (c *Collection) delete(expr filter.Expr, multi bool) int {
	kept := c.docs[:0]
	deleted := 0
	for _, d := range c.docs {
		if (multi || deleted == 0) && filter.Matches(d, expr) {
			id, _ := d.Get(c.identity)
			delete(c.ids, idKey(id))
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	for i := len(kept); i < len(c.docs); i++ {
		c.docs[i] = nil
	}
	c.docs = kept
	return deleted
}

// DeleteByID removes the document with the given identity.
func (c *Collection) DeleteByID(id document.Value) error {
	i, ok := c.position(id)
	if !ok {
		return c.notFound(id)
	}
	delete(c.ids, idKey(id))
	last := len(c.docs) - 1
	copy(c.docs[i:], c.docs[i+1:])
	c.docs[last] = nil
	c.docs = c.docs[:last]
	return nil
}

// Aggregate runs p over all stored documents in insertion order and returns
// copies of the output documents.
func (c *Collection) Aggregate(p *aggregate.Pipeline) []*document.Document {
	out := aggregate.Run(c.docs, p)
	for i, d := range out {
		out[i] = d.Clone()
	}
	return out
}

// Snapshot returns copies of all documents in insertion order.
func (c *Collection) Snapshot() []*document.Document {
	out := make([]*document.Document, len(c.docs))
	for i, d := range c.docs {
		out[i] = d.Clone()
	}
	return out
}

// Restore replaces the contents of the collection with docs. Nothing is
// changed if any document is invalid.
func (c *Collection) Restore(docs []*document.Document) error {
	fresh := New(c.name, WithIdentity(c.identity), WithIDGenerator(c.newID))
	if _, err := fresh.InsertMany(docs); err != nil {
		return err
	}
	c.docs, c.ids = fresh.docs, fresh.ids
	return nil
}
