package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/adfharrison1/go-docquery/pkg/domain"
)

// ErrorResponse represents a standard JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// WriteJSONError writes a JSON error response with the given status code and message
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	json.NewEncoder(w).Encode(response)
}

// StatusForError maps an engine error to its HTTP status.
func StatusForError(err error) int {
	switch domain.CodeOf(err) {
	case domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrDuplicateKey:
		return http.StatusConflict
	case domain.ErrTypeMismatch:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeEngineError logs a failed operation and writes the mapped error response.
func writeEngineError(w http.ResponseWriter, op, collName string, err error) {
	status := StatusForError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("ERROR: %s failed for collection '%s': %v", op, collName, err)
	} else {
		log.Printf("WARN: %s rejected for collection '%s': %v", op, collName, err)
	}
	WriteJSONError(w, status, err.Error())
}

// writeJSON writes v as a JSON response body.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: Encoding response failed: %v", err)
	}
}
