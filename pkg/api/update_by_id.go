package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleUpdateById handles PATCH requests carrying an update document, e.g.
// {"$inc": {"marks": 5}}, and responds with the updated document.
func (h *Handler) HandleUpdateById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	log.Printf("INFO: handleUpdateById called for collection '%s', document '%s'", collName, docId)

	updateDoc, err := readDocument(w, r)
	if err != nil {
		writeEngineError(w, "Update by id", collName, err)
		return
	}

	doc, err := h.engine.UpdateByID(collName, docId, updateDoc)
	if err != nil {
		writeEngineError(w, "Update by id", collName, err)
		return
	}

	h.saveAfterWrite(collName, "update")

	log.Printf("INFO: Updated document '%s' in collection '%s'", docId, collName)
	writeJSON(w, http.StatusOK, doc)
}

// HandleReplaceById handles PUT requests to replace the content of a document.
// The identity field may be omitted from the body but cannot be changed.
func (h *Handler) HandleReplaceById(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collName := vars["coll"]
	docId := vars["id"]

	log.Printf("INFO: handleReplaceById called for collection '%s', document '%s'", collName, docId)

	replacement, err := readDocument(w, r)
	if err != nil {
		writeEngineError(w, "Replace by id", collName, err)
		return
	}

	doc, err := h.engine.ReplaceByID(collName, docId, replacement)
	if err != nil {
		writeEngineError(w, "Replace by id", collName, err)
		return
	}

	h.saveAfterWrite(collName, "replace")

	log.Printf("INFO: Replaced document '%s' in collection '%s'", docId, collName)
	writeJSON(w, http.StatusOK, doc)
}
