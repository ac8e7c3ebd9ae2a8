// Package chat holds the conversation-session core: a per-identity state
// machine over an ordered session collection, write-through persistence,
// and asynchronous routing of remote answers back to the session that
// asked for them.
package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	chatmodel "github.com/cha-13/vitalis-chatbot-app/internal/model/chat"
	"github.com/cha-13/vitalis-chatbot-app/internal/model/identity"
	"github.com/cha-13/vitalis-chatbot-app/internal/service/ask"
	"github.com/cha-13/vitalis-chatbot-app/internal/store"
)

// Options tune the per-identity controllers.
type Options struct {
	TitlePolicy chatmodel.TitlePolicy
	MaxSessions int
	AskTimeout  time.Duration
}

const (
	DefaultMaxSessions = 50
	DefaultAskTimeout  = 30 * time.Second
	DefaultTitleLimit  = 40
)

func (o Options) withDefaults() Options {
	if o.TitlePolicy == nil {
		o.TitlePolicy = chatmodel.TitleFirstChars(DefaultTitleLimit)
	}
	if o.MaxSessions == 0 {
		o.MaxSessions = DefaultMaxSessions
	}
	if o.AskTimeout <= 0 {
		o.AskTimeout = DefaultAskTimeout
	}
	return o
}

// Service hands out one controller per identity and owns the lifecycle
// operation that outlives any controller: account deletion. Controllers are
// created on first use from the stored collection, so the store remains the
// single source of truth across restarts.
type Service struct {
	mu          sync.Mutex
	store       store.Store
	answerer    ask.Answerer
	opts        Options
	controllers map[string]*Controller
}

// NewService wires the session store and the answer backend.
func NewService(st store.Store, answerer ask.Answerer, opts Options) *Service {
	return &Service{
		store:       st,
		answerer:    answerer,
		opts:        opts.withDefaults(),
		controllers: make(map[string]*Controller),
	}
}

// Controller returns the identity's controller, loading its collection on
// first access. New identities start with an empty history.
func (s *Service) Controller(ctx context.Context, ident identity.Identity) (*Controller, error) {
	s.mu.Lock()
	if ctrl, ok := s.controllers[ident.ID]; ok {
		s.mu.Unlock()
		return ctrl, nil
	}
	s.mu.Unlock()

	// Load outside the lock; a concurrent first access for the same identity
	// resolves below in favor of whichever registered first.
	collection, err := s.store.Load(ctx, ident.ID)
	if err != nil {
		return nil, fmt.Errorf("load sessions for %s: %w", ident.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ctrl, ok := s.controllers[ident.ID]; ok {
		return ctrl, nil
	}
	ctrl := newController(ident, s.store, s.answerer, collection, s.opts)
	s.controllers[ident.ID] = ctrl
	return ctrl, nil
}

// DeleteAccount hard-deletes the identity's stored collection and forgets
// its controller. The store refuses the identity afterwards, so no further
// session operation can succeed for it.
func (s *Service) DeleteAccount(ctx context.Context, ident identity.Identity) error {
	if err := s.store.Delete(ctx, ident.ID); err != nil {
		return fmt.Errorf("delete account %s: %w", ident.ID, err)
	}

	s.mu.Lock()
	delete(s.controllers, ident.ID)
	s.mu.Unlock()
	return nil
}

// Forget drops the in-memory controller without touching stored data, for
// sign-out. The next access reloads from the store.
func (s *Service) Forget(identityID string) {
	s.mu.Lock()
	delete(s.controllers, identityID)
	s.mu.Unlock()
}
