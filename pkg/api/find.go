package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-docquery/pkg/storage"
)

// HandleFind handles POST requests of the form
// {"filter": {...}, "sort": {...}, "skip": n, "limit": n, "projection": {...}}.
// Every field is optional; an empty body returns the whole collection.
func (h *Handler) HandleFind(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	log.Printf("INFO: handleFind called for collection '%s'", collName)

	q, err := readFindQuery(w, r)
	if err != nil {
		writeEngineError(w, "Find", collName, err)
		return
	}

	docs, err := h.engine.Find(collName, q)
	if err != nil {
		writeEngineError(w, "Find", collName, err)
		return
	}

	if q.Filter == nil {
		log.Printf("INFO: Found %d documents in collection '%s' (no filter)", len(docs), collName)
	} else {
		log.Printf("INFO: Found %d documents in collection '%s' with filter %s", len(docs), collName, q.Filter)
	}
	writeJSON(w, http.StatusOK, newDocumentsResponse(docs))
}

func readFindQuery(w http.ResponseWriter, r *http.Request) (storage.FindQuery, error) {
	var q storage.FindQuery
	body, err := readOptions(w, r, "filter", "sort", "skip", "limit", "projection")
	if err != nil {
		return q, err
	}

	if q.Filter, err = documentField(body, "filter"); err != nil {
		return q, err
	}
	if q.Sort, err = documentField(body, "sort"); err != nil {
		return q, err
	}
	if q.Projection, err = documentField(body, "projection"); err != nil {
		return q, err
	}
	if q.Skip, err = intField(body, "skip"); err != nil {
		return q, err
	}
	if q.Limit, err = intField(body, "limit"); err != nil {
		return q, err
	}
	return q, nil
}

// CountResponse represents the response of a count request
type CountResponse struct {
	Count int `json:"count"`
}

// HandleCount handles POST requests of the form {"filter": {...}}
func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	log.Printf("INFO: handleCount called for collection '%s'", collName)

	body, err := readOptions(w, r, "filter")
	if err != nil {
		writeEngineError(w, "Count", collName, err)
		return
	}
	filterDoc, err := documentField(body, "filter")
	if err != nil {
		writeEngineError(w, "Count", collName, err)
		return
	}

	n, err := h.engine.Count(collName, filterDoc)
	if err != nil {
		writeEngineError(w, "Count", collName, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}
