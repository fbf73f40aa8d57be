package handler

import (
	"sync"

	"rcp-bridge/rcp"
)

// VariableStore holds the last-known display string of every tracked
// parameter. The session loop is the only writer; the bridge server and the
// console read snapshots concurrently.
type VariableStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewVariableStore creates a store with every tracked variable present and
// empty. A variable is always a string, never absent.
func NewVariableStore() *VariableStore {
	values := make(map[string]string, len(rcp.TrackedParams))
	for _, id := range rcp.TrackedParams {
		if name, ok := rcp.VariableName(id); ok {
			values[name] = ""
		}
	}
	return &VariableStore{values: values}
}

// Set overwrites the value for name. Unknown names are ignored so the store's
// key set stays fixed for the process lifetime.
func (s *VariableStore) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[name]; !ok {
		return
	}
	s.values[name] = value
}

// Get returns the current value for name ("" for unknown names).
func (s *VariableStore) Get(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[name]
}

// Snapshot returns a copy of all variables.
func (s *VariableStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]string, len(s.values))
	for name, value := range s.values {
		snapshot[name] = value
	}
	return snapshot
}
