package api

import (
	"log"

	"github.com/adfharrison1/go-docquery/pkg/document"
	"github.com/adfharrison1/go-docquery/pkg/storage"
)

// Engine is the document store served by the handlers. *storage.StorageEngine
// implements it.
type Engine interface {
	CreateCollection(collName, identity string) error
	DropCollection(collName string) error
	ListCollections() []storage.CollectionInfo

	Insert(collName string, doc *document.Document) (document.Value, error)
	InsertMany(collName string, docs []*document.Document) ([]document.Value, error)
	Find(collName string, q storage.FindQuery) ([]*document.Document, error)
	Count(collName string, filter *document.Document) (int, error)
	Update(collName string, filter, update *document.Document, multi bool) (int, error)
	Delete(collName string, filter *document.Document, multi bool) (int, error)
	Aggregate(collName string, stages []document.Value) ([]*document.Document, error)

	GetByID(collName, docID string) (*document.Document, error)
	UpdateByID(collName, docID string, update *document.Document) (*document.Document, error)
	ReplaceByID(collName, docID string, doc *document.Document) (*document.Document, error)
	DeleteByID(collName, docID string) error

	SaveCollectionAfterTransaction(collName string) error
}

var _ Engine = (*storage.StorageEngine)(nil)

// Handler provides HTTP handlers for the document API
type Handler struct {
	engine Engine
}

// NewHandler creates a new API handler with dependency injection
func NewHandler(engine Engine) *Handler {
	return &Handler{
		engine: engine,
	}
}

// saveAfterWrite saves the collection if transaction saves are enabled. A
// failed save is logged and does not fail the request.
func (h *Handler) saveAfterWrite(collName, op string) {
	if err := h.engine.SaveCollectionAfterTransaction(collName); err != nil {
		log.Printf("WARN: Failed to save collection '%s' after %s: %v", collName, op, err)
	}
}
