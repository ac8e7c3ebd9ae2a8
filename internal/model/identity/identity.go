package identity

import "github.com/google/uuid"

// Identity is the context a session collection is stored under: either an
// authenticated user with a stable id and profile, or an ephemeral guest.
// Every store and controller call receives the identity explicitly; nothing
// in this codebase reads a shared "current user".
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Guest       bool   `json:"guest,omitempty"`
}

// NewGuest mints a guest identity. Guest ids are generated once per client
// session and never persisted, so their history dies with the connection.
func NewGuest() Identity {
	return Identity{ID: uuid.NewString(), DisplayName: "Guest", Guest: true}
}
