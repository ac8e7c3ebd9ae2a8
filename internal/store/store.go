// Package store persists one session collection per identity as a single
// document, mirroring the users/{id} -> {chatHistory: [...]} layout of the
// original mobile backend. Saves are whole-document overwrites: a write
// either fully replaces the collection or fails without partial effect.
package store

import (
	"context"
	"errors"

	"github.com/cha-13/vitalis-chatbot-app/internal/model/chat"
)

var ErrIdentityRevoked = errors.New("identity has been deleted")

// Document is the stored shape for one identity.
type Document struct {
	ChatHistory chat.Collection `json:"chatHistory"`
}

// Store loads and saves session collections keyed by identity id.
//
// Load returns an empty collection when no record exists yet; a brand-new
// user is not an error. The returned collection includes cleared sessions;
// visibility filtering is the controller's concern, so soft-deleted records
// survive round trips.
type Store interface {
	Load(ctx context.Context, identityID string) (chat.Collection, error)
	Save(ctx context.Context, identityID string, collection chat.Collection) error
	// Delete hard-removes the identity's document for account deletion.
	// Subsequent calls for the same identity fail with ErrIdentityRevoked.
	Delete(ctx context.Context, identityID string) error
}
