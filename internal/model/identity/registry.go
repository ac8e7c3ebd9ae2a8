package identity

import "sync"

// Registry exposes identity lookup for handlers and lifecycle operations.
// Authentication itself (sign-in, tokens) is an upstream collaborator; the
// registry only answers "who is this id" and forgets destroyed accounts.
type Registry interface {
	FindByID(id string) (Identity, bool)
	Put(ident Identity)
	Destroy(id string) bool
}

// MemoryRegistry implements Registry with a mutex-guarded map.
type MemoryRegistry struct {
	mu    sync.RWMutex
	items map[string]Identity
}

// NewMemoryRegistry returns a registry preloaded with the supplied identities.
func NewMemoryRegistry(items ...Identity) *MemoryRegistry {
	r := &MemoryRegistry{items: make(map[string]Identity, len(items))}
	for _, item := range items {
		r.items[item.ID] = item
	}
	return r
}

// FindByID looks up an identity by its stable id.
func (r *MemoryRegistry) FindByID(id string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ident, ok := r.items[id]
	return ident, ok
}

// Put registers a new identity or overwrites an existing profile.
func (r *MemoryRegistry) Put(ident Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[ident.ID] = ident
}

// Destroy removes the identity record. It reports whether anything was
// deleted so account removal can distinguish a repeat call.
func (r *MemoryRegistry) Destroy(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return false
	}
	delete(r.items, id)
	return true
}
