package api

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-docquery/pkg/domain"
	"github.com/adfharrison1/go-docquery/pkg/storage"
)

// CollectionsResponse lists collection metadata
type CollectionsResponse struct {
	Collections []storage.CollectionInfo `json:"collections"`
}

// HandleListCollections handles GET requests listing every collection
func (h *Handler) HandleListCollections(w http.ResponseWriter, r *http.Request) {
	log.Printf("INFO: handleListCollections called")

	infos := h.engine.ListCollections()
	if infos == nil {
		infos = []storage.CollectionInfo{}
	}
	writeJSON(w, http.StatusOK, CollectionsResponse{Collections: infos})
}

// CreateCollectionResponse represents the response of a collection creation
type CreateCollectionResponse struct {
	Success    bool   `json:"success"`
	Collection string `json:"collection"`
	Identity   string `json:"identity,omitempty"`
}

// HandleCreateCollection handles PUT requests creating an empty collection.
// The optional body {"identity": "book_id"} names the identity field.
func (h *Handler) HandleCreateCollection(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	log.Printf("INFO: handleCreateCollection called for collection '%s'", collName)

	body, err := readOptions(w, r, "identity")
	if err != nil {
		writeEngineError(w, "Create collection", collName, err)
		return
	}
	var identity string
	if v, ok := body.Get("identity"); ok {
		if identity, ok = v.AsString(); !ok {
			writeEngineError(w, "Create collection", collName, domain.Validation("identity must be a string, got %s", v.Kind()))
			return
		}
	}

	if err := h.engine.CreateCollection(collName, identity); err != nil {
		writeEngineError(w, "Create collection", collName, err)
		return
	}

	h.saveAfterWrite(collName, "create")

	writeJSON(w, http.StatusCreated, CreateCollectionResponse{Success: true, Collection: collName, Identity: identity})
}

// HandleDropCollection handles DELETE requests removing a collection and its snapshot
func (h *Handler) HandleDropCollection(w http.ResponseWriter, r *http.Request) {
	collName := mux.Vars(r)["coll"]

	log.Printf("INFO: handleDropCollection called for collection '%s'", collName)

	if err := h.engine.DropCollection(collName); err != nil {
		writeEngineError(w, "Drop collection", collName, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
