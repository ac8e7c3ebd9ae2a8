package chat

import (
	"time"

	"github.com/google/uuid"
)

// Session is one conversation: a titled, ordered sequence of turns.
// A session is created together with its first turn and its Messages slice
// is therefore never empty. Cleared marks soft deletion: the record stays in
// the store but is hidden from the visible history.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Turn    `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	Cleared   bool      `json:"cleared,omitempty"`
}

// NewSession starts a conversation from its first user turn.
func NewSession(title string, first Turn) Session {
	return Session{
		ID:        uuid.NewString(),
		Title:     title,
		Messages:  []Turn{first},
		CreatedAt: time.Now().UTC(),
	}
}

// Append adds a turn to the end of the conversation.
func (s *Session) Append(t Turn) {
	s.Messages = append(s.Messages, t)
}

// Collection is the ordered set of sessions owned by one identity. Indices
// into a collection are stable: sessions are appended, never removed, and
// clearing is a flag flip.
type Collection []Session

// Visible returns the sessions that belong in the history list, skipping
// cleared ones.
func (c Collection) Visible() []Session {
	out := make([]Session, 0, len(c))
	for _, s := range c {
		if !s.Cleared {
			out = append(out, s)
		}
	}
	return out
}

// VisibleIndices maps visible history positions to collection indices.
func (c Collection) VisibleIndices() []int {
	idx := make([]int, 0, len(c))
	for i, s := range c {
		if !s.Cleared {
			idx = append(idx, i)
		}
	}
	return idx
}

// ClearAll soft-deletes every session in place.
func (c Collection) ClearAll() {
	for i := range c {
		c[i].Cleared = true
	}
}

// Clone deep-copies the collection so a snapshot handed to callers cannot
// drift against the owned copy.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for i, s := range c {
		out[i] = s
		out[i].Messages = append([]Turn(nil), s.Messages...)
	}
	return out
}
