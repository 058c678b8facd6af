package storage

import "time"

type StorageOption func(*StorageEngine)

func WithDataDir(dir string) StorageOption {
	return func(engine *StorageEngine) {
		engine.dataDir = dir
	}
}

func WithBackgroundSave(interval time.Duration) StorageOption {
	return func(engine *StorageEngine) {
		engine.backgroundSave = true
		engine.saveInterval = interval
		engine.transactionSave = false // Disable transaction saves when background saves are enabled
	}
}

// WithTransactionSave enables saving after every write transaction (default: true)
func WithTransactionSave(enabled bool) StorageOption {
	return func(engine *StorageEngine) {
		engine.transactionSave = enabled
	}
}

// WithIdentityField sets the identity field of collections created
// implicitly by an insert. Collections created explicitly may override it.
func WithIdentityField(field string) StorageOption {
	return func(engine *StorageEngine) {
		if field != "" {
			engine.identityField = field
		}
	}
}

// WithFilterCacheSize sets how many compiled filters are kept. Zero disables
// the cache.
func WithFilterCacheSize(n int) StorageOption {
	return func(engine *StorageEngine) {
		engine.filterCacheSize = n
	}
}

// WithMaxPageSize caps the limit of a single find. Zero removes the cap.
func WithMaxPageSize(n int) StorageOption {
	return func(engine *StorageEngine) {
		engine.maxPageSize = n
	}
}
