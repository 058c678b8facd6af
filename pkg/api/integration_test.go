package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-docquery/pkg/storage"
)

// TestServer represents a test HTTP server backed by a real storage engine
type TestServer struct {
	Server  *httptest.Server
	TempDir string
	Storage *storage.StorageEngine
	BaseURL string
}

// NewTestServer creates a new test server with temporary storage
func NewTestServer(t *testing.T, storageOptions ...storage.StorageOption) *TestServer {
	tempDir := t.TempDir()

	options := append([]storage.StorageOption{
		storage.WithDataDir(tempDir),
		storage.WithTransactionSave(true),
	}, storageOptions...)
	engine := storage.NewStorageEngine(options...)

	router := mux.NewRouter()
	NewHandler(engine).RegisterRoutes(router)
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:  server,
		TempDir: tempDir,
		Storage: engine,
		BaseURL: server.URL,
	}
	t.Cleanup(func() {
		server.Close()
		engine.StopBackgroundWorkers()
	})
	return ts
}

// Do sends a request with a raw JSON body and returns the status and body.
func (ts *TestServer) Do(t *testing.T, method, path, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, ts.BaseURL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func documentsOf(t *testing.T, body string) []map[string]interface{} {
	t.Helper()
	var response struct {
		Documents []map[string]interface{} `json:"documents"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &response))
	return response.Documents
}

func TestAPI_Integration_Books(t *testing.T) {
	ts := NewTestServer(t)

	status, _ := ts.Do(t, "PUT", "/collections/books", `{"identity": "book_id"}`)
	require.Equal(t, http.StatusCreated, status)

	status, body := ts.Do(t, "POST", "/collections/books/batch", `{"documents": [
		{"book_id": "B001", "title": "Go in Action", "category": "Technology", "price": 30},
		{"book_id": "B002", "title": "Dune", "category": "Fiction", "price": 45},
		{"book_id": "B003", "title": "Designing Data", "category": "Technology", "price": 60}
	]}`)
	require.Equal(t, http.StatusCreated, status, body)
	assert.JSONEq(t, `{"success": true, "message": "Batch insert completed successfully", "inserted_count": 3, "collection": "books", "ids": ["B001", "B002", "B003"]}`, body)

	t.Run("snapshot written after transaction", func(t *testing.T) {
		_, err := os.Stat(filepath.Join(ts.TempDir, "collections", "books"+storage.FileExtension))
		assert.NoError(t, err)
	})

	t.Run("find keeps field order", func(t *testing.T) {
		status, body := ts.Do(t, "POST", "/collections/books/find",
			`{"filter": {"category": "Technology"}, "sort": {"price": -1}, "projection": {"title": 1, "price": 1}}`)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t,
			`{"documents":[{"book_id":"B003","title":"Designing Data","price":60},{"book_id":"B001","title":"Go in Action","price":30}],"count":2}`+"\n",
			body)
	})

	t.Run("update many", func(t *testing.T) {
		status, body := ts.Do(t, "POST", "/collections/books/update",
			`{"filter": {"category": "Technology", "price": {"$lt": 40}}, "update": {"$set": {"onSale": true}}, "multi": true}`)
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"modified": 1}`, body)

		status, body = ts.Do(t, "POST", "/collections/books/count", `{"filter": {"onSale": {"$exists": true}}}`)
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"count": 1}`, body)
	})

	t.Run("aggregate", func(t *testing.T) {
		status, body := ts.Do(t, "POST", "/collections/books/aggregate", `{"pipeline": [
			{"$group": {"_id": "$category", "total": {"$sum": 1}, "avgPrice": {"$avg": "$price"}}},
			{"$sort": {"_id": 1}}
		]}`)
		require.Equal(t, http.StatusOK, status, body)
		assert.JSONEq(t, `{"documents": [
			{"_id": "Fiction", "total": 1, "avgPrice": 45},
			{"_id": "Technology", "total": 2, "avgPrice": 45}
		], "count": 2}`, body)
	})

	t.Run("delete many", func(t *testing.T) {
		status, body := ts.Do(t, "POST", "/collections/books/delete", `{"filter": {"price": {"$gt": 50}}, "multi": true}`)
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"deleted": 1}`, body)

		status, body = ts.Do(t, "POST", "/collections/books/find", ``)
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, documentsOf(t, body), 2)
	})
}

func TestAPI_Integration_DocumentsByID(t *testing.T) {
	ts := NewTestServer(t, storage.WithIdentityField("roll_no"))

	status, body := ts.Do(t, "POST", "/collections/students",
		`{"roll_no": 7, "name": "Asha", "marks": 72, "subjects": ["math"]}`)
	require.Equal(t, http.StatusCreated, status, body)
	assert.JSONEq(t, `{"success": true, "id": 7, "collection": "students"}`, body)

	status, body = ts.Do(t, "GET", "/collections/students/documents/7", ``)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"roll_no":7,"name":"Asha","marks":72,"subjects":["math"]}`+"\n", body)

	status, body = ts.Do(t, "PATCH", "/collections/students/documents/7",
		`{"$inc": {"marks": 5}, "$push": {"subjects": "physics"}}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.JSONEq(t, `{"roll_no": 7, "name": "Asha", "marks": 77, "subjects": ["math", "physics"]}`, body)

	status, body = ts.Do(t, "PATCH", "/collections/students/documents/7", `{"$inc": {"name": 1}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status, body)

	status, body = ts.Do(t, "PATCH", "/collections/students/documents/7", `{"$set": {"roll_no": 8}}`)
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = ts.Do(t, "PUT", "/collections/students/documents/7", `{"name": "Asha K"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.JSONEq(t, `{"roll_no": 7, "name": "Asha K"}`, body)

	status, _ = ts.Do(t, "POST", "/collections/students", `{"roll_no": 7}`)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = ts.Do(t, "DELETE", "/collections/students/documents/7", ``)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = ts.Do(t, "GET", "/collections/students/documents/7", ``)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_Integration_Collections(t *testing.T) {
	ts := NewTestServer(t)

	status, body := ts.Do(t, "GET", "/collections", ``)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"collections": []}`, body)

	status, _ = ts.Do(t, "PUT", "/collections/events", ``)
	require.Equal(t, http.StatusCreated, status)
	status, _ = ts.Do(t, "PUT", "/collections/events", ``)
	assert.Equal(t, http.StatusConflict, status)

	status, body = ts.Do(t, "GET", "/collections", ``)
	require.Equal(t, http.StatusOK, status)
	var listed struct {
		Collections []map[string]interface{} `json:"collections"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &listed), body)
	require.Len(t, listed.Collections, 1)
	assert.Equal(t, "events", listed.Collections[0]["name"])
	assert.Equal(t, "_id", listed.Collections[0]["identity"])
	assert.Equal(t, "loaded", listed.Collections[0]["state"], "saved after the create transaction")

	status, _ = ts.Do(t, "DELETE", "/collections/events", ``)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = ts.Do(t, "DELETE", "/collections/events", ``)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.Do(t, "POST", "/collections/events/find", ``)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_Integration_InvalidQueries(t *testing.T) {
	ts := NewTestServer(t)
	status, _ := ts.Do(t, "POST", "/collections/items", `{"a": 1}`)
	require.Equal(t, http.StatusCreated, status)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"unknown operator", "/collections/items/find", `{"filter": {"a": {"$near": 1}}}`},
		{"in requires array", "/collections/items/find", `{"filter": {"a": {"$in": 1}}}`},
		{"bad sort direction", "/collections/items/find", `{"sort": {"a": 0}}`},
		{"limit over maximum", "/collections/items/find", `{"limit": 5000}`},
		{"overlapping update paths", "/collections/items/update", `{"update": {"$set": {"a": 1, "a.b": 2}}}`},
		{"empty update", "/collections/items/update", `{"update": {}}`},
		{"unknown stage", "/collections/items/aggregate", `{"pipeline": [{"$lookup": {}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ts.Do(t, "POST", tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, status, body)
			assert.Contains(t, body, "ValidationError")
		})
	}
}
