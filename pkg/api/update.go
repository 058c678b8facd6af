package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-docquery/pkg/domain"
)

// UpdateResponse reports how many documents an update changed
type UpdateResponse struct {
	Modified int `json:"modified"`
}

// HandleUpdate handles POST requests of the form
// {"filter": {...}, "update": {"$set": {...}}, "multi": true}.
// Without multi only the first matching document is updated.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	log.Printf("INFO: handleUpdate called for collection '%s'", collName)

	body, err := readDocument(w, r)
	if err == nil {
		err = checkFields(body, "filter", "update", "multi")
	}
	if err != nil {
		writeEngineError(w, "Update", collName, err)
		return
	}

	filterDoc, err := documentField(body, "filter")
	if err != nil {
		writeEngineError(w, "Update", collName, err)
		return
	}
	updateDoc, err := documentField(body, "update")
	if err == nil && updateDoc == nil {
		err = domain.Validation("update is required")
	}
	if err != nil {
		writeEngineError(w, "Update", collName, err)
		return
	}
	multi, err := boolField(body, "multi")
	if err != nil {
		writeEngineError(w, "Update", collName, err)
		return
	}

	modified, err := h.engine.Update(collName, filterDoc, updateDoc, multi)
	if modified > 0 {
		// Documents committed before a failure stay updated
		h.saveAfterWrite(collName, "update")
	}
	if err != nil {
		writeEngineError(w, "Update", collName, err)
		return
	}

	log.Printf("INFO: Updated %d documents in collection '%s'", modified, collName)
	writeJSON(w, http.StatusOK, UpdateResponse{Modified: modified})
}

// DeleteResponse reports how many documents a delete removed
type DeleteResponse struct {
	Deleted int `json:"deleted"`
}

// HandleDelete handles POST requests of the form {"filter": {...}, "multi": true}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	log.Printf("INFO: handleDelete called for collection '%s'", collName)

	body, err := readOptions(w, r, "filter", "multi")
	if err != nil {
		writeEngineError(w, "Delete", collName, err)
		return
	}
	filterDoc, err := documentField(body, "filter")
	if err != nil {
		writeEngineError(w, "Delete", collName, err)
		return
	}
	multi, err := boolField(body, "multi")
	if err != nil {
		writeEngineError(w, "Delete", collName, err)
		return
	}

	deleted, err := h.engine.Delete(collName, filterDoc, multi)
	if err != nil {
		writeEngineError(w, "Delete", collName, err)
		return
	}
	if deleted > 0 {
		h.saveAfterWrite(collName, "delete")
	}

	log.Printf("INFO: Deleted %d documents from collection '%s'", deleted, collName)
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: deleted})
}
