package metrics

import (
	"log"
	"sync"
)

var (
	globalStore *Store
	initOnce    sync.Once
	initErr     error
)

// Init initializes the global metrics store.
// It is safe to call multiple times; subsequent calls are no-ops.
func Init() error {
	initOnce.Do(func() {
		globalStore, initErr = NewStore()
		if initErr != nil {
			log.Printf("metrics: failed to initialize store: %v", initErr)
		}
	})
	return initErr
}

// RecordInvocation increments the invocation count for the given mode.
// If the store is not initialized, this is a no-op (logs a warning).
func RecordInvocation(mode Mode) {
	if globalStore == nil {
		if err := Init(); err != nil {
			log.Printf("metrics: cannot record invocation, store not initialized: %v", err)
			return
		}
	}

	if err := globalStore.Increment(mode); err != nil {
		log.Printf("metrics: failed to record invocation for %s: %v", mode, err)
	}
}

// GetStats returns the cumulative invocation counts for all modes.
// Returns nil if the store is not initialized.
func GetStats() map[Mode]int64 {
	if globalStore == nil {
		return nil
	}

	stats, err := globalStore.GetAllTotals()
	if err != nil {
		log.Printf("metrics: failed to get stats: %v", err)
		return nil
	}
	return stats
}

// Close closes the global store.
func Close() error {
	if globalStore == nil {
		return nil
	}
	return globalStore.Close()
}

// SetStoreForTesting replaces the global store. Tests only.
func SetStoreForTesting(store *Store) {
	globalStore = store
}

// ResetForTesting clears the global store state. Tests only.
func ResetForTesting() {
	globalStore = nil
	initOnce = sync.Once{}
	initErr = nil
}
