// Package storage hosts named document collections for the HTTP server.
//
// The engine packages are single-threaded; StorageEngine adds the
// concurrency and durability they leave out: one RWMutex per collection,
// lazy loading of collections from snapshot files, transaction or
// background saves, and a cache of compiled filters.
package storage

import (
	"sync"
	"time"

	"github.com/adfharrison1/go-docquery/pkg/collection"
)

// CollectionLock provides per-collection concurrency control
type CollectionLock struct {
	mu sync.RWMutex
}

// StorageEngine owns every collection served by the host.
type StorageEngine struct {
	mu          sync.RWMutex
	collections map[string]*CollectionInfo        // Collection metadata (always in memory)
	loaded      map[string]*collection.Collection // Collections currently in memory
	filters     *FilterCache

	// Per-collection locks. Acquire before se.mu, never after.
	collectionLocks map[string]*CollectionLock
	locksMu         sync.RWMutex

	// Configuration
	dataDir         string
	identityField   string
	filterCacheSize int
	maxPageSize     int
	backgroundSave  bool
	transactionSave bool
	saveInterval    time.Duration

	// Background workers
	backgroundWg sync.WaitGroup
	stopChan     chan struct{}
}

// NewStorageEngine creates a new storage engine
func NewStorageEngine(options ...StorageOption) *StorageEngine {
	engine := &StorageEngine{
		collections:     make(map[string]*CollectionInfo),
		loaded:          make(map[string]*collection.Collection),
		collectionLocks: make(map[string]*CollectionLock),
		dataDir:         ".",
		identityField:   collection.DefaultIdentity,
		filterCacheSize: 256,
		maxPageSize:     1000,
		backgroundSave:  false,
		transactionSave: true, // Default to transaction-based saves
		saveInterval:    5 * time.Minute,
		stopChan:        make(chan struct{}),
	}

	for _, option := range options {
		option(engine)
	}

	engine.filters = NewFilterCache(engine.filterCacheSize)
	return engine
}

// getOrCreateCollectionLock gets or creates a lock for a collection
func (se *StorageEngine) getOrCreateCollectionLock(collName string) *CollectionLock {
	se.locksMu.RLock()
	if lock, exists := se.collectionLocks[collName]; exists {
		se.locksMu.RUnlock()
		return lock
	}
	se.locksMu.RUnlock()

	se.locksMu.Lock()
	defer se.locksMu.Unlock()

	// Double-check in case another goroutine created it
	if lock, exists := se.collectionLocks[collName]; exists {
		return lock
	}

	lock := &CollectionLock{}
	se.collectionLocks[collName] = lock
	return lock
}

// withCollectionReadLock executes a function with a read lock on the specified collection
func (se *StorageEngine) withCollectionReadLock(collName string, fn func() error) error {
	lock := se.getOrCreateCollectionLock(collName)
	lock.mu.RLock()
	defer lock.mu.RUnlock()
	return fn()
}

// withCollectionWriteLock executes a function with a write lock on the specified collection
func (se *StorageEngine) withCollectionWriteLock(collName string, fn func() error) error {
	lock := se.getOrCreateCollectionLock(collName)
	lock.mu.Lock()
	defer lock.mu.Unlock()
	return fn()
}

// SaveCollectionAfterTransaction saves a specific collection to disk if transaction saves are enabled
func (se *StorageEngine) SaveCollectionAfterTransaction(collName string) error {
	if !se.transactionSave {
		return nil
	}

	se.mu.RLock()
	info, exists := se.collections[collName]
	dirty := exists && info.State == CollectionStateDirty
	se.mu.RUnlock()
	if !dirty {
		return nil
	}

	return se.saveCollectionToFile(collName)
}

// IsTransactionSaveEnabled returns whether transaction-based saves are enabled
func (se *StorageEngine) IsTransactionSaveEnabled() bool {
	return se.transactionSave
}

// MaxPageSize returns the largest limit a find request may ask for.
func (se *StorageEngine) MaxPageSize() int {
	return se.maxPageSize
}
