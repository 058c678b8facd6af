package storage

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adfharrison1/go-docquery/pkg/collection"
)

func (se *StorageEngine) collectionsDir() string {
	return filepath.Join(se.dataDir, "collections")
}

func (se *StorageEngine) collectionPath(collName string) string {
	return filepath.Join(se.collectionsDir(), collName+FileExtension)
}

// LoadCollectionMetadata registers every snapshot in the data directory as
// an unloaded collection. Documents are read on first access.
func (se *StorageEngine) LoadCollectionMetadata() error {
	entries, err := os.ReadDir(se.collectionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read collections directory: %w", err)
	}

	se.mu.Lock()
	defer se.mu.Unlock()

	registered := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), FileExtension) {
			continue
		}
		collName := strings.TrimSuffix(entry.Name(), FileExtension)
		if _, exists := se.collections[collName]; exists {
			continue
		}

		info := &CollectionInfo{
			Name:  collName,
			State: CollectionStateUnloaded,
		}
		if fi, err := entry.Info(); err == nil {
			info.SizeOnDisk = fi.Size()
			info.LastModified = fi.ModTime()
		}
		se.collections[collName] = info
		registered++
	}

	log.Printf("INFO: Registered %d collections from %s", registered, se.collectionsDir())
	return nil
}

// loadCollectionFromDisk reads a collection snapshot. Caller must hold se.mu.
func (se *StorageEngine) loadCollectionFromDisk(collName string) (*collection.Collection, error) {
	file, err := os.Open(se.collectionPath(collName))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	snap, err := DecodeSnapshot(file)
	if err != nil {
		return nil, err
	}
	if snap.Name != "" && snap.Name != collName {
		log.Printf("WARN: Snapshot for collection '%s' was saved as '%s'", collName, snap.Name)
	}

	coll := collection.New(collName, collection.WithIdentity(snap.Identity))
	if err := coll.Restore(snap.Documents); err != nil {
		return nil, err
	}

	log.Printf("INFO: Loaded collection '%s' with %d documents", collName, coll.Len())
	return coll, nil
}

// dirtyCollections returns the names of collections with unsaved writes.
func (se *StorageEngine) dirtyCollections() []string {
	se.mu.RLock()
	defer se.mu.RUnlock()

	var dirty []string
	for collName, info := range se.collections {
		if info.State == CollectionStateDirty {
			dirty = append(dirty, collName)
		}
	}
	return dirty
}

// SaveAll saves every dirty collection, continuing past failures.
func (se *StorageEngine) SaveAll() error {
	var errs []error
	for _, collName := range se.dirtyCollections() {
		if err := se.saveCollectionToFile(collName); err != nil {
			errs = append(errs, fmt.Errorf("collection %s: %w", collName, err))
		}
	}
	return errors.Join(errs...)
}

// saveDirtyCollections saves all dirty collections to individual files
func (se *StorageEngine) saveDirtyCollections() {
	start := time.Now()
	savedCount := 0
	errorCount := 0

	dirtyCollections := se.dirtyCollections()
	if len(dirtyCollections) == 0 {
		log.Printf("DEBUG: No dirty collections to save")
		return
	}

	log.Printf("INFO: Background save starting - %d dirty collections to save", len(dirtyCollections))

	for _, collName := range dirtyCollections {
		if err := se.saveCollectionToFile(collName); err != nil {
			log.Printf("ERROR: Failed to save collection %s: %v", collName, err)
			errorCount++
		} else {
			savedCount++
		}
	}

	elapsed := time.Since(start)
	if errorCount > 0 {
		log.Printf("WARN: Background save completed with errors - saved: %d, errors: %d, time: %v",
			savedCount, errorCount, elapsed)
	} else {
		log.Printf("INFO: Background save completed successfully - saved: %d collections in %v",
			savedCount, elapsed)
	}
}

// saveCollectionToFile saves a single collection to its individual file
func (se *StorageEngine) saveCollectionToFile(collName string) error {
	// Write lock: serialises concurrent saves of the same file
	return se.withCollectionWriteLock(collName, func() error {
		return se.saveCollectionToFileUnsafe(collName)
	})
}

// saveCollectionToFileUnsafe saves a collection without acquiring locks (caller must hold collection write lock)
func (se *StorageEngine) saveCollectionToFileUnsafe(collName string) error {
	se.mu.RLock()
	info, exists := se.collections[collName]
	dirty := exists && info.State == CollectionStateDirty
	coll := se.loaded[collName]
	se.mu.RUnlock()

	// Dropped, or already saved by another goroutine
	if !dirty || coll == nil {
		return nil
	}

	var buf bytes.Buffer
	snap := &Snapshot{Name: collName, Identity: coll.Identity(), Documents: coll.Snapshot()}
	if err := EncodeSnapshot(&buf, snap); err != nil {
		return err
	}

	if err := os.MkdirAll(se.collectionsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create collections directory: %w", err)
	}

	// Write to temporary file first, then rename
	filename := se.collectionPath(collName)
	tempFile := filename + ".tmp"
	if err := os.WriteFile(tempFile, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write collection file: %w", err)
	}
	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename collection file: %w", err)
	}

	se.mu.Lock()
	info.State = CollectionStateLoaded
	info.SizeOnDisk = int64(buf.Len())
	se.mu.Unlock()

	log.Printf("DEBUG: Saved collection %s (%d documents, %d bytes)", collName, len(snap.Documents), buf.Len())
	return nil
}
