package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// HandleAggregate handles POST requests of the form {"pipeline": [{...}, ...]}
func (h *Handler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	log.Printf("INFO: handleAggregate called for collection '%s'", collName)

	body, err := readDocument(w, r)
	if err == nil {
		err = checkFields(body, "pipeline")
	}
	if err != nil {
		writeEngineError(w, "Aggregate", collName, err)
		return
	}
	stages, err := arrayField(body, "pipeline")
	if err != nil {
		writeEngineError(w, "Aggregate", collName, err)
		return
	}

	docs, err := h.engine.Aggregate(collName, stages)
	if err != nil {
		writeEngineError(w, "Aggregate", collName, err)
		return
	}

	log.Printf("INFO: Aggregation over collection '%s' ran %d stages and produced %d documents", collName, len(stages), len(docs))
	writeJSON(w, http.StatusOK, newDocumentsResponse(docs))
}
