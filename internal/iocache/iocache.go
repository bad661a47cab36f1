// Package iocache is for caching upstream reads and recording report history.
package iocache

import (
	"sync"

	"github.com/huangsam/cistat/internal/contract"
)

// CacheStoreManager manages the event cache and the report history stores.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	events       contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetEventStore returns the raw event payload CacheStore, or nil when caching is off.
func (mgr *CacheStoreManager) GetEventStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.events
}

// GetHistoryStore returns the HistoryStore, or nil when history is off.
func (mgr *CacheStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
