package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	chatmodel "github.com/cha-13/vitalis-chatbot-app/internal/model/chat"
	"github.com/cha-13/vitalis-chatbot-app/internal/model/identity"
	"github.com/cha-13/vitalis-chatbot-app/internal/service/ask"
	"github.com/cha-13/vitalis-chatbot-app/internal/store"
)

// stubAnswerer resolves asks with a fixed result, optionally holding each
// question until its gate channel is released.
type stubAnswerer struct {
	mu     sync.Mutex
	result ask.Result
	gates  map[string]chan ask.Result
	asked  []string
}

func newStubAnswerer(result ask.Result) *stubAnswerer {
	return &stubAnswerer{result: result, gates: make(map[string]chan ask.Result)}
}

func (s *stubAnswerer) gate(question string) chan ask.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan ask.Result, 1)
	s.gates[question] = ch
	return ch
}

func (s *stubAnswerer) Ask(_ context.Context, question, _ string) ask.Result {
	s.mu.Lock()
	s.asked = append(s.asked, question)
	gate := s.gates[question]
	s.mu.Unlock()

	if gate != nil {
		return <-gate
	}
	return s.result
}

func (s *stubAnswerer) askCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.asked)
}

// flakyStore fails saves on demand while otherwise delegating to Memory.
type flakyStore struct {
	*store.Memory
	mu       sync.Mutex
	failSave bool
}

func (f *flakyStore) Save(ctx context.Context, identityID string, c chatmodel.Collection) error {
	f.mu.Lock()
	failing := f.failSave
	f.mu.Unlock()
	if failing {
		return errors.New("backend unavailable")
	}
	return f.Memory.Save(ctx, identityID, c)
}

func testIdentity() identity.Identity {
	return identity.Identity{ID: "user-1", DisplayName: "Pat"}
}

func newTestController(t *testing.T, answerer ask.Answerer, st store.Store) *Controller {
	t.Helper()
	if st == nil {
		st = store.NewMemory()
	}
	svc := NewService(st, answerer, Options{})
	ctrl, err := svc.Controller(context.Background(), testIdentity())
	if err != nil {
		t.Fatalf("Controller err: %v", err)
	}
	return ctrl
}

func awaitReceipt(t *testing.T, r *Receipt) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for answer")
	}
}

func TestSubmitCreatesSessionWithSingleUserTurn(t *testing.T) {
	answerer := newStubAnswerer(ask.Answer("Try resting and hydrating."))
	gate := answerer.gate("I have a headache")
	ctrl := newTestController(t, answerer, nil)

	receipt, err := ctrl.Submit(context.Background(), "I have a headache")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if receipt.PersistErr != nil {
		t.Fatalf("unexpected persist error: %v", receipt.PersistErr)
	}

	// Before the answer arrives: exactly one session, exactly one user turn.
	history := ctrl.History()
	if len(history) != 1 {
		t.Fatalf("expected 1 session, got %d", len(history))
	}
	if history[0].Title != "I have a headache" {
		t.Fatalf("unexpected title: %q", history[0].Title)
	}
	if len(history[0].Messages) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(history[0].Messages))
	}
	if got := history[0].Messages[0]; got.Text != "I have a headache" || got.Sender != chatmodel.SenderUser {
		t.Fatalf("unexpected first turn: %+v", got)
	}

	gate <- ask.Answer("Try resting and hydrating.")
	awaitReceipt(t, receipt)

	history = ctrl.History()
	if len(history[0].Messages) != 2 {
		t.Fatalf("expected [user, bot] turns, got %d", len(history[0].Messages))
	}
	if got := history[0].Messages[1]; got.Text != "Try resting and hydrating." || got.Sender != chatmodel.SenderBot {
		t.Fatalf("unexpected bot turn: %+v", got)
	}
}

func TestSubmitRejectsEmptyInput(t *testing.T) {
	answerer := newStubAnswerer(ask.Answer("unused"))
	ctrl := newTestController(t, answerer, nil)

	for _, input := range []string{"", "   "} {
		if _, err := ctrl.Submit(context.Background(), input); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("input %q: expected ErrEmptyInput, got %v", input, err)
		}
	}

	if len(ctrl.History()) != 0 {
		t.Fatal("rejected input must not change the collection")
	}
	if answerer.askCount() != 0 {
		t.Fatal("rejected input must not reach the network")
	}
}

func TestSubmitAppendsToActiveSession(t *testing.T) {
	answerer := newStubAnswerer(ask.Answer("ok"))
	ctrl := newTestController(t, answerer, nil)

	first, _ := ctrl.Submit(context.Background(), "first question")
	awaitReceipt(t, first)
	second, _ := ctrl.Submit(context.Background(), "a follow-up")
	awaitReceipt(t, second)

	history := ctrl.History()
	if len(history) != 1 {
		t.Fatalf("follow-up must not open a session, got %d sessions", len(history))
	}
	if len(history[0].Messages) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(history[0].Messages))
	}
	if second.SessionIndex != first.SessionIndex {
		t.Fatal("both submissions should target the same session")
	}
}

func TestLateAnswerRoutedToOriginatingSession(t *testing.T) {
	answerer := newStubAnswerer(ask.Result{})
	gateA := answerer.gate("question A")
	gateB := answerer.gate("question B")
	ctrl := newTestController(t, answerer, nil)

	receiptA, err := ctrl.Submit(context.Background(), "question A")
	if err != nil {
		t.Fatalf("Submit A err: %v", err)
	}

	// Switch away while A is still in flight and open session B.
	ctrl.StartNewSession()
	receiptB, err := ctrl.Submit(context.Background(), "question B")
	if err != nil {
		t.Fatalf("Submit B err: %v", err)
	}

	gateB <- ask.Answer("answer B")
	awaitReceipt(t, receiptB)
	gateA <- ask.Answer("answer A")
	awaitReceipt(t, receiptA)

	history := ctrl.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(history))
	}
	if got := history[0].Messages[1].Text; got != "answer A" {
		t.Fatalf("session A got %q", got)
	}
	if got := history[1].Messages[1].Text; got != "answer B" {
		t.Fatalf("session B got %q", got)
	}
}

func TestResumeSessionValidation(t *testing.T) {
	answerer := newStubAnswerer(ask.Answer("ok"))
	ctrl := newTestController(t, answerer, nil)

	r, _ := ctrl.Submit(context.Background(), "only session")
	awaitReceipt(t, r)
	ctrl.StartNewSession()

	if err := ctrl.ResumeSession(1); !errors.Is(err, ErrInvalidSessionIndex) {
		t.Fatalf("expected ErrInvalidSessionIndex, got %v", err)
	}
	if _, active := ctrl.ActiveTranscript(); active {
		t.Fatal("failed resume must not activate a session")
	}

	if err := ctrl.ResumeSession(0); err != nil {
		t.Fatalf("ResumeSession err: %v", err)
	}
	turns, active := ctrl.ActiveTranscript()
	if !active || len(turns) != 2 {
		t.Fatalf("expected resumed transcript of 2 turns, got %d (active=%v)", len(turns), active)
	}
}

func TestFailureAnswerBecomesBotTurn(t *testing.T) {
	answerer := newStubAnswerer(ask.Failure(ask.FailConnectText))
	ctrl := newTestController(t, answerer, nil)

	receipt, _ := ctrl.Submit(context.Background(), "are bananas healthy")
	awaitReceipt(t, receipt)

	history := ctrl.History()
	if len(history[0].Messages) != 2 {
		t.Fatalf("failed ask must still produce a bot turn, got %d turns", len(history[0].Messages))
	}
	if got := history[0].Messages[1]; got.Text != ask.FailConnectText || got.Sender != chatmodel.SenderBot {
		t.Fatalf("unexpected failure turn: %+v", got)
	}
}

func TestPersistFailureKeepsOptimisticTurn(t *testing.T) {
	answerer := newStubAnswerer(ask.Answer("ok"))
	st := &flakyStore{Memory: store.NewMemory()}
	st.failSave = true
	ctrl := newTestController(t, answerer, st)

	receipt, err := ctrl.Submit(context.Background(), "will this be saved")
	if err != nil {
		t.Fatalf("Submit err: %v", err)
	}
	if receipt.PersistErr == nil {
		t.Fatal("expected persist failure to be reported")
	}
	awaitReceipt(t, receipt)

	// The turn stays visible even though the write-through failed.
	history := ctrl.History()
	if len(history) != 1 || history[0].Messages[0].Text != "will this be saved" {
		t.Fatal("optimistic turn was rolled back")
	}
}

func TestClearAllHidesHistoryButKeepsRecords(t *testing.T) {
	answerer := newStubAnswerer(ask.Answer("ok"))
	mem := store.NewMemory()
	ctrl := newTestController(t, answerer, mem)
	ctx := context.Background()

	r1, _ := ctrl.Submit(ctx, "one")
	awaitReceipt(t, r1)
	ctrl.StartNewSession()
	r2, _ := ctrl.Submit(ctx, "two")
	awaitReceipt(t, r2)

	if err := ctrl.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll err: %v", err)
	}

	if len(ctrl.History()) != 0 {
		t.Fatal("visible history must be empty after clear-all")
	}
	if _, active := ctrl.ActiveTranscript(); active {
		t.Fatal("clear-all must return to NoActiveSession")
	}

	doc, ok := mem.Inspect("user-1")
	if !ok || len(doc.ChatHistory) != 2 {
		t.Fatalf("cleared records must remain in the store, got %d", len(doc.ChatHistory))
	}
	for i, s := range doc.ChatHistory {
		if !s.Cleared {
			t.Fatalf("stored session %d not marked cleared", i)
		}
	}
}

func TestSessionCapSoftClearsOldest(t *testing.T) {
	answerer := newStubAnswerer(ask.Answer("ok"))
	st := store.NewMemory()
	svc := NewService(st, answerer, Options{MaxSessions: 2})
	ctrl, err := svc.Controller(context.Background(), testIdentity())
	if err != nil {
		t.Fatalf("Controller err: %v", err)
	}

	for _, q := range []string{"first", "second", "third"} {
		r, err := ctrl.Submit(context.Background(), q)
		if err != nil {
			t.Fatalf("Submit %q err: %v", q, err)
		}
		awaitReceipt(t, r)
		ctrl.StartNewSession()
	}

	history := ctrl.History()
	if len(history) != 2 {
		t.Fatalf("expected cap of 2 live sessions, got %d", len(history))
	}
	if history[0].Title != "second" || history[1].Title != "third" {
		t.Fatalf("expected oldest session cleared, visible: %q, %q", history[0].Title, history[1].Title)
	}

	doc, _ := st.Inspect("user-1")
	if len(doc.ChatHistory) != 3 {
		t.Fatalf("cap must soft-clear, not delete; stored %d", len(doc.ChatHistory))
	}
}

func TestControllerReloadsFromStore(t *testing.T) {
	answerer := newStubAnswerer(ask.Answer("ok"))
	st := store.NewMemory()
	svc := NewService(st, answerer, Options{})
	ident := testIdentity()

	ctrl, _ := svc.Controller(context.Background(), ident)
	r, _ := ctrl.Submit(context.Background(), "remember me")
	awaitReceipt(t, r)

	svc.Forget(ident.ID)

	again, err := svc.Controller(context.Background(), ident)
	if err != nil {
		t.Fatalf("Controller err: %v", err)
	}
	history := again.History()
	if len(history) != 1 || len(history[0].Messages) != 2 {
		t.Fatal("reloaded controller lost persisted history")
	}
}

func TestDeleteAccountRevokesFurtherUse(t *testing.T) {
	answerer := newStubAnswerer(ask.Answer("ok"))
	st := store.NewMemory()
	svc := NewService(st, answerer, Options{})
	ident := testIdentity()

	ctrl, _ := svc.Controller(context.Background(), ident)
	r, _ := ctrl.Submit(context.Background(), "delete me later")
	awaitReceipt(t, r)

	if err := svc.DeleteAccount(context.Background(), ident); err != nil {
		t.Fatalf("DeleteAccount err: %v", err)
	}

	if _, ok := st.Inspect(ident.ID); ok {
		t.Fatal("stored collection must be hard-deleted")
	}
	if _, err := svc.Controller(context.Background(), ident); !errors.Is(err, store.ErrIdentityRevoked) {
		t.Fatalf("expected ErrIdentityRevoked, got %v", err)
	}
}

func TestAnswerEventsReachSubscribers(t *testing.T) {
	answerer := newStubAnswerer(ask.Answer("event payload"))
	ctrl := newTestController(t, answerer, nil)

	sub := ctrl.Subscribe()
	defer ctrl.Unsubscribe(sub)

	receipt, _ := ctrl.Submit(context.Background(), "notify me")
	awaitReceipt(t, receipt)

	select {
	case event := <-sub:
		if event.Turn.Text != "event payload" || event.Failed {
			t.Fatalf("unexpected event: %+v", event)
		}
		if event.SessionIndex != receipt.SessionIndex {
			t.Fatalf("event for wrong session: %d != %d", event.SessionIndex, receipt.SessionIndex)
		}
	case <-time.After(time.Second):
		t.Fatal("no answer event delivered")
	}
}
