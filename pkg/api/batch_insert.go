package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-docquery/pkg/document"
	"github.com/adfharrison1/go-docquery/pkg/domain"
)

// maxBatchSize is the largest number of documents accepted by one batch insert.
const maxBatchSize = 1000

// BatchInsertResponse represents the response for batch insert operations
type BatchInsertResponse struct {
	Success       bool             `json:"success"`
	Message       string           `json:"message"`
	InsertedCount int              `json:"inserted_count"`
	Collection    string           `json:"collection"`
	IDs           []document.Value `json:"ids"`
}

// HandleBatchInsert handles POST requests of the form {"documents": [...]}.
// Either every document is inserted or none is.
func (h *Handler) HandleBatchInsert(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	log.Printf("INFO: handleBatchInsert called for collection '%s'", collName)

	docs, err := readBatch(w, r)
	if err != nil {
		writeEngineError(w, "Batch insert", collName, err)
		return
	}

	ids, err := h.engine.InsertMany(collName, docs)
	if err != nil {
		writeEngineError(w, "Batch insert", collName, err)
		return
	}

	h.saveAfterWrite(collName, "batch insert")

	response := BatchInsertResponse{
		Success:       true,
		Message:       "Batch insert completed successfully",
		InsertedCount: len(ids),
		Collection:    collName,
		IDs:           ids,
	}
	writeJSON(w, http.StatusCreated, response)

	log.Printf("INFO: Batch insert successful for collection '%s', inserted %d documents", collName, len(ids))
}

func readBatch(w http.ResponseWriter, r *http.Request) ([]*document.Document, error) {
	body, err := readDocument(w, r)
	if err != nil {
		return nil, err
	}
	if err := checkFields(body, "documents"); err != nil {
		return nil, err
	}
	elems, err := arrayField(body, "documents")
	if err != nil {
		return nil, err
	}

	if len(elems) == 0 {
		return nil, domain.Validation("no documents provided")
	}
	if len(elems) > maxBatchSize {
		return nil, domain.Validation("maximum %d documents allowed per batch, got %d", maxBatchSize, len(elems))
	}

	docs := make([]*document.Document, len(elems))
	for i, elem := range elems {
		d, ok := elem.AsObject()
		if !ok {
			return nil, domain.Validation("documents[%d] must be a document, got %s", i, elem.Kind())
		}
		docs[i] = d
	}
	return docs, nil
}
