package chat

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	chatmodel "github.com/cha-13/vitalis-chatbot-app/internal/model/chat"
	"github.com/cha-13/vitalis-chatbot-app/internal/model/identity"
	"github.com/cha-13/vitalis-chatbot-app/internal/service/ask"
	"github.com/cha-13/vitalis-chatbot-app/internal/store"
)

var (
	ErrEmptyInput          = errors.New("input text is empty")
	ErrInvalidSessionIndex = errors.New("invalid session index")
)

// noActiveSession is the controller's initial state and the state after
// "new chat" or clear-all.
const noActiveSession = -1

// AnswerEvent is broadcast when an in-flight ask resolves into a bot turn.
type AnswerEvent struct {
	SessionID    string         `json:"sessionId"`
	SessionIndex int            `json:"sessionIndex"`
	Turn         chatmodel.Turn `json:"turn"`
	Failed       bool           `json:"failed"`
}

// Receipt is returned by Submit as soon as the user turn is appended and
// the persist attempt has completed. The answer arrives later; Done is
// closed once the bot turn for this submission has been recorded.
type Receipt struct {
	SessionID    string
	SessionIndex int
	// PersistErr reports a failed write-through. The optimistic turn stays
	// visible and the ask is still dispatched; callers should warn that the
	// message may not have been saved.
	PersistErr error

	done chan struct{}
}

// Done signals that the originating session received its bot turn.
func (r *Receipt) Done() <-chan struct{} {
	return r.done
}

// Controller is the per-identity session state machine. It exclusively owns
// the identity's in-memory collection; the index into it is the only state
// distinguishing NoActiveSession from ActiveSession. All mutations and the
// write-through saves they trigger run under one mutex, so back-to-back
// submissions append and persist in order.
type Controller struct {
	mu         sync.Mutex
	ident      identity.Identity
	store      store.Store
	answerer   ask.Answerer
	title      chatmodel.TitlePolicy
	maxLive    int
	askTimeout time.Duration

	collection chatmodel.Collection
	active     int

	subs map[chan AnswerEvent]struct{}
}

func newController(ident identity.Identity, st store.Store, answerer ask.Answerer, collection chatmodel.Collection, opts Options) *Controller {
	return &Controller{
		ident:      ident,
		store:      st,
		answerer:   answerer,
		title:      opts.TitlePolicy,
		maxLive:    opts.MaxSessions,
		askTimeout: opts.AskTimeout,
		collection: collection,
		active:     noActiveSession,
		subs:       make(map[chan AnswerEvent]struct{}),
	}
}

// History returns the visible (non-cleared) sessions.
func (c *Controller) History() []chatmodel.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collection.Clone().Visible()
}

// ActiveTranscript returns the current session's turns, or false when no
// session is active.
func (c *Controller) ActiveTranscript() ([]chatmodel.Turn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == noActiveSession {
		return nil, false
	}
	turns := append([]chatmodel.Turn(nil), c.collection[c.active].Messages...)
	return turns, true
}

// StartNewSession drops the active pointer. No stored session is touched;
// the next Submit starts a fresh conversation.
func (c *Controller) StartNewSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = noActiveSession
}

// ResumeSession activates the session at the given position in the visible
// history. An out-of-range position fails and leaves the state unchanged.
func (c *Controller) ResumeSession(visibleIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	indices := c.collection.VisibleIndices()
	if visibleIndex < 0 || visibleIndex >= len(indices) {
		return ErrInvalidSessionIndex
	}
	c.active = indices[visibleIndex]
	return nil
}

// Submit appends the user's turn (creating a session first when none is
// active), persists the collection, and dispatches the ask without blocking.
// The user turn is durable (or its save failure reported) before the remote
// call ever starts.
func (c *Controller) Submit(ctx context.Context, text string) (*Receipt, error) {
	turn, err := chatmodel.UserTurn(text)
	if err != nil {
		return nil, ErrEmptyInput
	}

	c.mu.Lock()

	if c.active == noActiveSession {
		c.enforceSessionCapLocked()
		session := chatmodel.NewSession(c.title(text), turn)
		c.collection = append(c.collection, session)
		c.active = len(c.collection) - 1
	} else {
		c.collection[c.active].Append(turn)
	}

	index := c.active
	sessionID := c.collection[index].ID
	saveErr := c.store.Save(ctx, c.ident.ID, c.collection)
	c.mu.Unlock()

	if saveErr != nil {
		log.Printf("[chat] write-through failed identity=%s session=%s: %v", c.ident.ID, sessionID, saveErr)
	}

	receipt := &Receipt{
		SessionID:    sessionID,
		SessionIndex: index,
		PersistErr:   saveErr,
		done:         make(chan struct{}),
	}

	go c.dispatch(turn.Text, index, receipt)

	return receipt, nil
}

// dispatch runs the ask off the caller's goroutine. It holds the collection
// index captured at send time: the user may switch or clear sessions while
// the request is in flight, and the answer still lands in the conversation
// that asked. Indices stay valid because the collection is append-only and
// clearing never removes elements.
func (c *Controller) dispatch(question string, index int, receipt *Receipt) {
	defer close(receipt.done)

	askCtx, cancel := context.WithTimeout(context.Background(), c.askTimeout)
	defer cancel()

	result := c.answerer.Ask(askCtx, question, c.ident.ID)
	c.recordAnswer(index, result)
}

func (c *Controller) recordAnswer(index int, result ask.Result) {
	turn, err := chatmodel.BotTurn(result.Text)
	if err != nil {
		// Answerers return fixed non-empty failure texts; an empty result
		// would be a bug in the answerer itself.
		log.Printf("[chat] dropping empty bot turn identity=%s: %v", c.ident.ID, err)
		return
	}

	c.mu.Lock()
	c.collection[index].Append(turn)
	sessionID := c.collection[index].ID

	saveCtx, cancel := context.WithTimeout(context.Background(), c.askTimeout)
	if err := c.store.Save(saveCtx, c.ident.ID, c.collection); err != nil {
		log.Printf("[chat] failed to persist bot turn identity=%s session=%s: %v", c.ident.ID, sessionID, err)
	}
	cancel()

	event := AnswerEvent{
		SessionID:    sessionID,
		SessionIndex: index,
		Turn:         turn,
		Failed:       result.Failed,
	}
	for sub := range c.subs {
		select {
		case sub <- event:
		default:
			// Slow subscribers miss events rather than stalling the chat.
		}
	}
	c.mu.Unlock()
}

// ClearAll soft-deletes every session and returns to NoActiveSession. The
// records stay in the store with cleared set, invisible to the load path.
func (c *Controller) ClearAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.collection.ClearAll()
	c.active = noActiveSession
	if err := c.store.Save(ctx, c.ident.ID, c.collection); err != nil {
		return err
	}
	return nil
}

// Subscribe registers a channel for answer events. The channel is owned by
// the caller and must be released with Unsubscribe.
func (c *Controller) Subscribe() chan AnswerEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub := make(chan AnswerEvent, 8)
	c.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a previously registered channel.
func (c *Controller) Unsubscribe(sub chan AnswerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, sub)
}

// enforceSessionCapLocked soft-clears the oldest live sessions until a new
// one fits under the configured cap. Soft-clearing keeps indices stable for
// any answer still in flight to an old session.
func (c *Controller) enforceSessionCapLocked() {
	if c.maxLive <= 0 {
		return
	}

	live := c.collection.VisibleIndices()
	for len(live) >= c.maxLive {
		oldest := live[0]
		c.collection[oldest].Cleared = true
		if c.active == oldest {
			c.active = noActiveSession
		}
		live = live[1:]
	}
}
