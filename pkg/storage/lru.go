package storage

import (
	"container/list"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/adfharrison1/go-docquery/pkg/document"
	"github.com/adfharrison1/go-docquery/pkg/query/filter"
)

// FilterCache keeps recently compiled filters keyed by the msgpack encoding of
// their filter document. Compiled expressions are immutable and shared between callers.
type FilterCache struct {
	mu       sync.Mutex
	capacity int
	list     *list.List
	cache    map[string]*list.Element

	hits   int64
	misses int64
}

type cacheEntry struct {
	key  string
	expr filter.Expr
}

func NewFilterCache(capacity int) *FilterCache {
	return &FilterCache{
		capacity: capacity,
		list:     list.New(),
		cache:    make(map[string]*list.Element),
	}
}

func (lru *FilterCache) Get(key string) (filter.Expr, bool) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if element, exists := lru.cache[key]; exists {
		lru.list.MoveToFront(element)
		lru.hits++
		return element.Value.(*cacheEntry).expr, true
	}
	lru.misses++
	return nil, false
}

func (lru *FilterCache) Put(key string, expr filter.Expr) {
	if lru.capacity <= 0 {
		return
	}

	lru.mu.Lock()
	defer lru.mu.Unlock()

	if element, exists := lru.cache[key]; exists {
		element.Value.(*cacheEntry).expr = expr
		lru.list.MoveToFront(element)
		return
	}

	element := lru.list.PushFront(&cacheEntry{key: key, expr: expr})
	lru.cache[key] = element

	if lru.list.Len() > lru.capacity {
		lru.evictOldest()
	}
}

func (lru *FilterCache) evictOldest() {
	element := lru.list.Back()
	if element != nil {
		entry := element.Value.(*cacheEntry)
		delete(lru.cache, entry.key)
		lru.list.Remove(element)
	}
}

// Compile returns the cached expression for doc, compiling and caching it on
// a miss. An empty filter compiles to nil, which matches every document.
func (lru *FilterCache) Compile(doc *document.Document) (filter.Expr, error) {
	if doc == nil || doc.Len() == 0 {
		return nil, nil
	}

	key, err := filterKey(doc)
	if err != nil {
		return filter.Compile(doc)
	}
	if expr, found := lru.Get(key); found {
		return expr, nil
	}

	expr, err := filter.Compile(doc)
	if err != nil {
		return nil, err
	}
	lru.Put(key, expr)
	return expr, nil
}

// filterKey encodes doc with its value kinds, so values that render alike in
// JSON (null and ±Inf or NaN) get distinct keys.
func filterKey(doc *document.Document) (string, error) {
	b, err := msgpack.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (lru *FilterCache) Capacity() int {
	return lru.capacity
}

func (lru *FilterCache) Len() int {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	return lru.list.Len()
}

// Stats returns the hit and miss counters.
func (lru *FilterCache) Stats() (hits, misses int64) {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	return lru.hits, lru.misses
}
