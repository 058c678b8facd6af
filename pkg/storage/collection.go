package storage

import (
	"time"
)

type CollectionState int

const (
	CollectionStateUnloaded CollectionState = iota
	CollectionStateLoading
	CollectionStateLoaded
	CollectionStateDirty
)

func (s CollectionState) String() string {
	switch s {
	case CollectionStateUnloaded:
		return "unloaded"
	case CollectionStateLoading:
		return "loading"
	case CollectionStateLoaded:
		return "loaded"
	case CollectionStateDirty:
		return "dirty"
	}
	return "unknown"
}

// MarshalText renders the state by name in JSON responses.
func (s CollectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CollectionInfo is the metadata kept for every known collection, loaded or not.
type CollectionInfo struct {
	Name          string          `json:"name"`
	Identity      string          `json:"identity,omitempty"`
	DocumentCount int64           `json:"document_count"`
	SizeOnDisk    int64           `json:"size_on_disk"`
	LastModified  time.Time       `json:"last_modified"`
	State         CollectionState `json:"state"`
	AccessCount   int64           `json:"access_count"`
	LastAccessed  time.Time       `json:"last_accessed,omitempty"`
}

// touch records a read of the collection. Caller must hold se.mu.
func (info *CollectionInfo) touch() {
	info.AccessCount++
	info.LastAccessed = time.Now()
}

// markDirty records a write of the collection. Caller must hold se.mu.
func (info *CollectionInfo) markDirty(count int) {
	info.State = CollectionStateDirty
	info.DocumentCount = int64(count)
	info.LastModified = time.Now()
}
