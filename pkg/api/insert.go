package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-docquery/pkg/document"
)

// InsertResponse represents the response for a single insert
type InsertResponse struct {
	Success    bool           `json:"success"`
	ID         document.Value `json:"id"`
	Collection string         `json:"collection"`
}

// HandleInsert handles POST requests to insert a document into a collection
func (h *Handler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	log.Printf("INFO: handleInsert called for collection '%s'", collName)

	doc, err := readDocument(w, r)
	if err != nil {
		writeEngineError(w, "Insert", collName, err)
		return
	}

	id, err := h.engine.Insert(collName, doc)
	if err != nil {
		writeEngineError(w, "Insert", collName, err)
		return
	}

	h.saveAfterWrite(collName, "insert")

	log.Printf("INFO: Insert successful for collection '%s', id %s", collName, id)
	writeJSON(w, http.StatusCreated, InsertResponse{Success: true, ID: id, Collection: collName})
}
