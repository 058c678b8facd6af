package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/go-docquery/pkg/api"
	"github.com/adfharrison1/go-docquery/pkg/storage"
)

// Server holds references to storage, router, etc.
type Server struct {
	router   *mux.Router
	dbEngine *storage.StorageEngine
	handler  *api.Handler
}

// NewServer creates a new instance of Server.
func NewServer(options ...storage.StorageOption) *Server {
	dbEngine := storage.NewStorageEngine(options...)
	s := &Server{
		router:   mux.NewRouter(),
		dbEngine: dbEngine,
		handler:  api.NewHandler(dbEngine),
	}
	s.handler.RegisterRoutes(s.router)

	// Use the logging middleware for all routes
	s.router.Use(requestLoggerMiddleware)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("WARN: No route found for %s %s", r.Method, r.URL.Path)
		api.WriteJSONError(w, http.StatusNotFound, "no route for "+r.Method+" "+r.URL.Path)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("WARN: Method %s not allowed for %s", r.Method, r.URL.Path)
		api.WriteJSONError(w, http.StatusMethodNotAllowed, "method "+r.Method+" not allowed for "+r.URL.Path)
	})

	dbEngine.StartBackgroundWorkers()
	return s
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestLoggerMiddleware logs the method, URL path, status and duration for each request.
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)
		log.Printf("INFO: Request %s %s -> %d took %s", r.Method, r.URL.Path, rec.status, elapsed)
	})
}

// InitDB registers the collections found in the data directory. Their
// documents are loaded on first access.
func (s *Server) InitDB() {
	if err := s.dbEngine.LoadCollectionMetadata(); err != nil {
		log.Printf("ERROR: Could not load DB metadata: %v", err)
	} else {
		log.Printf("INFO: Loaded DB metadata successfully (%d collections)", len(s.dbEngine.ListCollections()))
	}
}

// SaveDB saves every collection with unsaved writes.
func (s *Server) SaveDB() {
	if err := s.dbEngine.SaveAll(); err != nil {
		log.Printf("ERROR: Could not save DB: %v", err)
	} else {
		log.Printf("INFO: Saved DB successfully")
	}
}

// StopBackgroundWorkers stops the background saver, if running.
func (s *Server) StopBackgroundWorkers() {
	s.dbEngine.StopBackgroundWorkers()
}

// Router exposes the internal mux.Router.
func (s *Server) Router() http.Handler {
	return s.router
}

// Engine exposes the storage engine, e.g. for embedding callers.
func (s *Server) Engine() *storage.StorageEngine {
	return s.dbEngine
}
