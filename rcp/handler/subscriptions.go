package handler

import "sync"

// Subscription records an external observer's interest in one variable. The
// feedback layer owns the lifecycle (register on activate, unregister on
// deactivate); the handler only stores entries and republishes on demand.
// Subscriptions do not filter inbound routing.
type Subscription struct {
	Variable string
	SubPath  string
}

// Subscriptions is the registry of active subscriptions keyed by an opaque id.
type Subscriptions struct {
	mu   sync.RWMutex
	byID map[string]Subscription
}

func NewSubscriptions() *Subscriptions {
	return &Subscriptions{byID: make(map[string]Subscription)}
}

// Register stores or replaces the subscription for id.
func (s *Subscriptions) Register(id string, sub Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[id] = sub
}

// Unregister removes the subscription for id, if present.
func (s *Subscriptions) Unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

// Get returns the subscription for id.
func (s *Subscriptions) Get(id string) (Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.byID[id]
	return sub, ok
}

// List returns a copy of all active subscriptions.
func (s *Subscriptions) List() map[string]Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make(map[string]Subscription, len(s.byID))
	for id, sub := range s.byID {
		list[id] = sub
	}
	return list
}
