package storage

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/adfharrison1/go-docquery/pkg/collection"
	"github.com/adfharrison1/go-docquery/pkg/domain"
)

// validateCollectionName rejects names that cannot be used as a snapshot file name.
func validateCollectionName(collName string) error {
	if collName == "" {
		return domain.Validation("collection name cannot be empty")
	}
	if strings.ContainsAny(collName, `/\`) || strings.HasPrefix(collName, ".") {
		return domain.Validation("invalid collection name %q", collName)
	}
	return nil
}

// getCollection returns the collection, loading it from disk on first use.
// Caller must hold the collection lock.
func (se *StorageEngine) getCollection(collName string) (*collection.Collection, error) {
	se.mu.Lock()
	defer se.mu.Unlock()
	return se.getCollectionInternal(collName)
}

// getCollectionInternal contains the actual collection loading logic without locking
func (se *StorageEngine) getCollectionInternal(collName string) (*collection.Collection, error) {
	info, exists := se.collections[collName]
	if !exists {
		return nil, domain.NotFound("collection %s does not exist", collName)
	}
	info.touch()

	if coll, ok := se.loaded[collName]; ok {
		return coll, nil
	}

	info.State = CollectionStateLoading
	coll, err := se.loadCollectionFromDisk(collName)
	if err != nil {
		info.State = CollectionStateUnloaded
		return nil, fmt.Errorf("failed to load collection %s: %w", collName, err)
	}

	se.loaded[collName] = coll
	info.Identity = coll.Identity()
	info.DocumentCount = int64(coll.Len())
	info.State = CollectionStateLoaded
	return coll, nil
}

// getOrCreateCollection returns the collection, creating it with the default
// identity field if it does not exist. Caller must hold the collection write lock.
func (se *StorageEngine) getOrCreateCollection(collName string) (*collection.Collection, error) {
	se.mu.Lock()
	defer se.mu.Unlock()

	if _, exists := se.collections[collName]; !exists {
		if err := validateCollectionName(collName); err != nil {
			return nil, err
		}
		log.Printf("INFO: Creating collection '%s' on first insert", collName)
		se.createCollectionInternal(collName, se.identityField)
	}
	return se.getCollectionInternal(collName)
}

func (se *StorageEngine) createCollectionInternal(collName, identity string) *collection.Collection {
	coll := collection.New(collName, collection.WithIdentity(identity))
	se.collections[collName] = &CollectionInfo{
		Name:         collName,
		Identity:     coll.Identity(),
		State:        CollectionStateLoaded,
		LastModified: time.Now(),
	}
	se.loaded[collName] = coll
	return coll
}

// CreateCollection creates an empty collection. An empty identity uses the
// engine default.
func (se *StorageEngine) CreateCollection(collName, identity string) error {
	if err := validateCollectionName(collName); err != nil {
		return err
	}
	if identity == "" {
		identity = se.identityField
	}

	return se.withCollectionWriteLock(collName, func() error {
		se.mu.Lock()
		defer se.mu.Unlock()

		if _, exists := se.collections[collName]; exists {
			return domain.DuplicateKey("collection %s already exists", collName)
		}
		se.createCollectionInternal(collName, identity)
		se.collections[collName].markDirty(0)

		log.Printf("INFO: Created collection '%s' with identity field '%s'", collName, identity)
		return nil
	})
}

// DropCollection removes a collection from memory and deletes its snapshot file.
func (se *StorageEngine) DropCollection(collName string) error {
	return se.withCollectionWriteLock(collName, func() error {
		se.mu.Lock()
		defer se.mu.Unlock()

		if _, exists := se.collections[collName]; !exists {
			return domain.NotFound("collection %s does not exist", collName)
		}
		delete(se.collections, collName)
		delete(se.loaded, collName)

		if err := os.Remove(se.collectionPath(collName)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove snapshot of collection %s: %w", collName, err)
		}

		log.Printf("INFO: Dropped collection '%s'", collName)
		return nil
	})
}

// ListCollections returns a copy of the metadata of every known collection,
// sorted by name.
func (se *StorageEngine) ListCollections() []CollectionInfo {
	se.mu.RLock()
	defer se.mu.RUnlock()

	infos := make([]CollectionInfo, 0, len(se.collections))
	for _, info := range se.collections {
		infos = append(infos, *info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// GetCollectionInfo returns a copy of the metadata of one collection.
func (se *StorageEngine) GetCollectionInfo(collName string) (CollectionInfo, error) {
	se.mu.RLock()
	defer se.mu.RUnlock()

	info, exists := se.collections[collName]
	if !exists {
		return CollectionInfo{}, domain.NotFound("collection %s does not exist", collName)
	}
	return *info, nil
}

// markDirty records a committed write on a collection.
func (se *StorageEngine) markDirty(collName string, coll *collection.Collection) {
	se.mu.Lock()
	defer se.mu.Unlock()
	if info, exists := se.collections[collName]; exists {
		info.markDirty(coll.Len())
	}
}
