package booking

import (
	"sync"
	"time"
)

// FlowStore keeps live booking flows keyed by session ID.
type FlowStore struct {
	flows   map[string]*Flow
	mu      sync.RWMutex
	timeout time.Duration
}

// NewFlowStore creates a store with the given idle timeout.
func NewFlowStore(timeout time.Duration) *FlowStore {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &FlowStore{
		flows:   make(map[string]*Flow),
		timeout: timeout,
	}
}

// Get returns the flow for id, or nil.
func (fs *FlowStore) Get(id string) *Flow {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	flow, ok := fs.flows[id]
	if !ok || flow.IsExpired(fs.timeout) {
		return nil
	}
	return flow
}

// Put stores a flow under its ID.
func (fs *FlowStore) Put(flow *Flow) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.flows[flow.ID] = flow
}

// Delete removes a flow.
func (fs *FlowStore) Delete(id string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.flows, id)
}

// Cleanup removes expired flows and returns how many were dropped.
func (fs *FlowStore) Cleanup() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	removed := 0
	for id, flow := range fs.flows {
		if flow.IsExpired(fs.timeout) {
			delete(fs.flows, id)
			removed++
		}
	}
	return removed
}

// StartCleanupLoop runs Cleanup on the given interval until stop is closed.
func (fs *FlowStore) StartCleanupLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fs.Cleanup()
		case <-stop:
			return
		}
	}
}
