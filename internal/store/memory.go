package store

import (
	"context"
	"sync"

	"github.com/cha-13/vitalis-chatbot-app/internal/model/chat"
)

// Memory implements Store with a mutex-guarded map. It backs tests and
// deployments without a database; documents live for the process lifetime.
type Memory struct {
	mu      sync.RWMutex
	docs    map[string]Document
	revoked map[string]struct{}
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:    make(map[string]Document),
		revoked: make(map[string]struct{}),
	}
}

// Load returns the stored collection, or an empty one for a new identity.
func (m *Memory) Load(_ context.Context, identityID string) (chat.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, gone := m.revoked[identityID]; gone {
		return nil, ErrIdentityRevoked
	}

	doc, ok := m.docs[identityID]
	if !ok {
		return chat.Collection{}, nil
	}
	return doc.ChatHistory.Clone(), nil
}

// Save replaces the identity's document with the supplied collection.
func (m *Memory) Save(_ context.Context, identityID string, collection chat.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, gone := m.revoked[identityID]; gone {
		return ErrIdentityRevoked
	}

	m.docs[identityID] = Document{ChatHistory: collection.Clone()}
	return nil
}

// Delete removes the document and revokes the identity.
func (m *Memory) Delete(_ context.Context, identityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, gone := m.revoked[identityID]; gone {
		return ErrIdentityRevoked
	}

	delete(m.docs, identityID)
	m.revoked[identityID] = struct{}{}
	return nil
}

// Inspect returns the raw stored document without visibility filtering,
// the way a direct backend lookup would see it.
func (m *Memory) Inspect(identityID string) (Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[identityID]
	return doc, ok
}
