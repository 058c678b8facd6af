package api

import (
	"sync"

	"github.com/adfharrison1/go-docquery/pkg/document"
	"github.com/adfharrison1/go-docquery/pkg/storage"
)

// MockEngine records the requests it receives and answers with canned results.
type MockEngine struct {
	mu sync.Mutex

	// err is returned by every operation when set
	err  error
	docs []*document.Document

	lastCollection string
	lastQuery      storage.FindQuery
	lastFilter     *document.Document
	lastUpdate     *document.Document
	lastMulti      bool
	lastStages     []document.Value
	saveCalls      int
}

func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

func (m *MockEngine) record(collName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCollection = collName
	return m.err
}

func (m *MockEngine) CreateCollection(collName, identity string) error {
	return m.record(collName)
}

func (m *MockEngine) DropCollection(collName string) error {
	return m.record(collName)
}

func (m *MockEngine) ListCollections() []storage.CollectionInfo {
	return nil
}

func (m *MockEngine) Insert(collName string, doc *document.Document) (document.Value, error) {
	return document.String("generated"), m.record(collName)
}

func (m *MockEngine) InsertMany(collName string, docs []*document.Document) ([]document.Value, error) {
	ids := make([]document.Value, len(docs))
	for i := range ids {
		ids[i] = document.Int(i + 1)
	}
	return ids, m.record(collName)
}

func (m *MockEngine) Find(collName string, q storage.FindQuery) ([]*document.Document, error) {
	m.mu.Lock()
	m.lastQuery = q
	m.mu.Unlock()
	return m.docs, m.record(collName)
}

func (m *MockEngine) Count(collName string, filter *document.Document) (int, error) {
	m.mu.Lock()
	m.lastFilter = filter
	m.mu.Unlock()
	return len(m.docs), m.record(collName)
}

func (m *MockEngine) Update(collName string, filter, update *document.Document, multi bool) (int, error) {
	m.mu.Lock()
	m.lastFilter, m.lastUpdate, m.lastMulti = filter, update, multi
	m.mu.Unlock()
	return len(m.docs), m.record(collName)
}

func (m *MockEngine) Delete(collName string, filter *document.Document, multi bool) (int, error) {
	m.mu.Lock()
	m.lastFilter, m.lastMulti = filter, multi
	m.mu.Unlock()
	return len(m.docs), m.record(collName)
}

func (m *MockEngine) Aggregate(collName string, stages []document.Value) ([]*document.Document, error) {
	m.mu.Lock()
	m.lastStages = stages
	m.mu.Unlock()
	return m.docs, m.record(collName)
}

func (m *MockEngine) GetByID(collName, docID string) (*document.Document, error) {
	return document.NewWith(document.F("_id", document.String(docID))), m.record(collName)
}

func (m *MockEngine) UpdateByID(collName, docID string, update *document.Document) (*document.Document, error) {
	m.mu.Lock()
	m.lastUpdate = update
	m.mu.Unlock()
	return document.NewWith(document.F("_id", document.String(docID))), m.record(collName)
}

func (m *MockEngine) ReplaceByID(collName, docID string, doc *document.Document) (*document.Document, error) {
	return doc, m.record(collName)
}

func (m *MockEngine) DeleteByID(collName, docID string) error {
	return m.record(collName)
}

func (m *MockEngine) SaveCollectionAfterTransaction(collName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	return nil
}
