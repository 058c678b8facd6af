package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")

	// Collection management
	router.HandleFunc("/collections", h.HandleListCollections).Methods("GET")
	router.HandleFunc("/collections/{coll}", h.HandleCreateCollection).Methods("PUT")
	router.HandleFunc("/collections/{coll}", h.HandleDropCollection).Methods("DELETE")

	// Inserts
	router.HandleFunc("/collections/{coll}", h.HandleInsert).Methods("POST")
	router.HandleFunc("/collections/{coll}/batch", h.HandleBatchInsert).Methods("POST")

	// Queries and bulk writes
	router.HandleFunc("/collections/{coll}/find", h.HandleFind).Methods("POST")
	router.HandleFunc("/collections/{coll}/count", h.HandleCount).Methods("POST")
	router.HandleFunc("/collections/{coll}/update", h.HandleUpdate).Methods("POST")
	router.HandleFunc("/collections/{coll}/delete", h.HandleDelete).Methods("POST")
	router.HandleFunc("/collections/{coll}/aggregate", h.HandleAggregate).Methods("POST")

	// Document operations (by ID)
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleGetById).Methods("GET")
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleUpdateById).Methods("PATCH") // Update operators
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleReplaceById).Methods("PUT")  // Complete replacement
	router.HandleFunc("/collections/{coll}/documents/{id}", h.HandleDeleteById).Methods("DELETE")
}
