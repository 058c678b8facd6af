package storage

import (
	"strconv"

	"github.com/adfharrison1/go-docquery/pkg/collection"
	"github.com/adfharrison1/go-docquery/pkg/document"
	"github.com/adfharrison1/go-docquery/pkg/domain"
	"github.com/adfharrison1/go-docquery/pkg/query/aggregate"
	"github.com/adfharrison1/go-docquery/pkg/query/order"
	"github.com/adfharrison1/go-docquery/pkg/query/projection"
)

// FindQuery holds the raw documents of a find request.
type FindQuery struct {
	Filter     *document.Document
	Sort       *document.Document
	Projection *document.Document
	domain.PageOptions
}

// Insert inserts a document into a collection, creating the collection if
// needed, and returns the document's identity.
func (se *StorageEngine) Insert(collName string, doc *document.Document) (document.Value, error) {
	var id document.Value
	err := se.withCollectionWriteLock(collName, func() error {
		coll, err := se.getOrCreateCollection(collName)
		if err != nil {
			return err
		}
		if id, err = coll.Insert(doc); err != nil {
			return err
		}
		se.markDirty(collName, coll)
		return nil
	})
	return id, err
}

// InsertMany inserts all documents or none of them.
func (se *StorageEngine) InsertMany(collName string, docs []*document.Document) ([]document.Value, error) {
	if len(docs) == 0 {
		return nil, domain.Validation("no documents provided")
	}

	var ids []document.Value
	err := se.withCollectionWriteLock(collName, func() error {
		coll, err := se.getOrCreateCollection(collName)
		if err != nil {
			return err
		}
		if ids, err = coll.InsertMany(docs); err != nil {
			return err
		}
		se.markDirty(collName, coll)
		return nil
	})
	return ids, err
}

// Find returns the documents matching q.
func (se *StorageEngine) Find(collName string, q FindQuery) ([]*document.Document, error) {
	expr, err := se.filters.Compile(q.Filter)
	if err != nil {
		return nil, err
	}
	var sortSpec order.Spec
	if q.Sort != nil {
		if sortSpec, err = order.Compile(q.Sort); err != nil {
			return nil, err
		}
	}
	page := q.PageOptions
	page.MaxLimit = se.maxPageSize

	var docs []*document.Document
	err = se.withCollectionReadLock(collName, func() error {
		coll, err := se.getCollection(collName)
		if err != nil {
			return err
		}
		proj, err := projection.Compile(q.Projection, projection.WithIdentity(coll.Identity()))
		if err != nil {
			return err
		}
		docs, err = coll.Find(expr, &collection.FindOptions{
			Sort:        sortSpec,
			PageOptions: page,
			Projection:  proj,
		})
		return err
	})
	return docs, err
}

// Count returns the number of documents matching filterDoc.
func (se *StorageEngine) Count(collName string, filterDoc *document.Document) (int, error) {
	expr, err := se.filters.Compile(filterDoc)
	if err != nil {
		return 0, err
	}

	var n int
	err = se.withCollectionReadLock(collName, func() error {
		coll, err := se.getCollection(collName)
		if err != nil {
			return err
		}
		n = coll.Count(expr)
		return nil
	})
	return n, err
}

// Update applies updateDoc to the first matching document, or to every
// matching document when multi is set, and returns how many changed. On
// error the count reports the documents updated before the failure.
func (se *StorageEngine) Update(collName string, filterDoc, updateDoc *document.Document, multi bool) (int, error) {
	expr, err := se.filters.Compile(filterDoc)
	if err != nil {
		return 0, err
	}

	var modified int
	err = se.withCollectionWriteLock(collName, func() error {
		coll, err := se.getCollection(collName)
		if err != nil {
			return err
		}
		spec, err := coll.CompileUpdate(updateDoc)
		if err != nil {
			return err
		}
		if multi {
			modified, err = coll.UpdateMany(expr, spec)
		} else {
			modified, err = coll.UpdateOne(expr, spec)
		}
		if modified > 0 {
			se.markDirty(collName, coll)
		}
		return err
	})
	return modified, err
}

// Delete removes the first matching document, or every matching document
// when multi is set.
func (se *StorageEngine) Delete(collName string, filterDoc *document.Document, multi bool) (int, error) {
	expr, err := se.filters.Compile(filterDoc)
	if err != nil {
		return 0, err
	}

	var deleted int
	err = se.withCollectionWriteLock(collName, func() error {
		coll, err := se.getCollection(collName)
		if err != nil {
			return err
		}
		if multi {
			deleted = coll.DeleteMany(expr)
		} else {
			deleted = coll.DeleteOne(expr)
		}
		if deleted > 0 {
			se.markDirty(collName, coll)
		}
		return nil
	})
	return deleted, err
}

// Aggregate runs a pipeline of stage documents over a collection.
func (se *StorageEngine) Aggregate(collName string, stages []document.Value) ([]*document.Document, error) {
	pipeline, err := aggregate.Compile(stages)
	if err != nil {
		return nil, err
	}

	var docs []*document.Document
	err = se.withCollectionReadLock(collName, func() error {
		coll, err := se.getCollection(collName)
		if err != nil {
			return err
		}
		docs = coll.Aggregate(pipeline)
		return nil
	})
	return docs, err
}

// resolveID maps an identity taken from a URL to the stored value. Numeric
// identities are tried when no string identity matches.
func resolveID(coll *collection.Collection, raw string) document.Value {
	id := document.String(raw)
	if coll.HasID(id) {
		return id
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		if num := document.Number(f); coll.HasID(num) {
			return num
		}
	}
	return id
}

// GetByID retrieves a specific document by its identity
func (se *StorageEngine) GetByID(collName, docID string) (*document.Document, error) {
	var doc *document.Document
	err := se.withCollectionReadLock(collName, func() error {
		coll, err := se.getCollection(collName)
		if err != nil {
			return err
		}
		doc, err = coll.FindByID(resolveID(coll, docID))
		return err
	})
	return doc, err
}

// UpdateByID applies an update document to one document and returns the result.
func (se *StorageEngine) UpdateByID(collName, docID string, updateDoc *document.Document) (*document.Document, error) {
	var doc *document.Document
	err := se.withCollectionWriteLock(collName, func() error {
		coll, err := se.getCollection(collName)
		if err != nil {
			return err
		}
		spec, err := coll.CompileUpdate(updateDoc)
		if err != nil {
			return err
		}
		if doc, err = coll.UpdateByID(resolveID(coll, docID), spec); err != nil {
			return err
		}
		se.markDirty(collName, coll)
		return nil
	})
	return doc, err
}

// ReplaceByID replaces the content of one document, keeping its identity.
func (se *StorageEngine) ReplaceByID(collName, docID string, replacement *document.Document) (*document.Document, error) {
	var doc *document.Document
	err := se.withCollectionWriteLock(collName, func() error {
		coll, err := se.getCollection(collName)
		if err != nil {
			return err
		}
		if doc, err = coll.ReplaceByID(resolveID(coll, docID), replacement); err != nil {
			return err
		}
		se.markDirty(collName, coll)
		return nil
	})
	return doc, err
}

// DeleteByID removes a specific document by its identity
func (se *StorageEngine) DeleteByID(collName, docID string) error {
	return se.withCollectionWriteLock(collName, func() error {
		coll, err := se.getCollection(collName)
		if err != nil {
			return err
		}
		if err := coll.DeleteByID(resolveID(coll, docID)); err != nil {
			return err
		}
		se.markDirty(collName, coll)
		return nil
	})
}
