// Package ask talks to the answer backend: a question plus an identity id
// in, exactly one displayable result out. Callers never see transport
// errors; every failure is folded into a bot-visible text here, at the
// boundary, and never re-inspected downstream.
package ask

import "context"

// Failure texts shown as bot turns. These match the markers the mobile
// client has always rendered, so existing UIs need no mapping.
const (
	FailConnectText = "⚠️ Failed to connect to server."
	FailGenericText = "⚠️ Something went wrong."

	errorPrefix = "❌ "
)

// Result is the tagged outcome of one ask: a usable answer or a failure
// text. Exactly one of the two interpretations applies.
type Result struct {
	Text   string
	Failed bool
}

// Answer wraps a successful answer text.
func Answer(text string) Result {
	return Result{Text: text}
}

// Failure wraps a bot-visible failure text.
func Failure(text string) Result {
	return Result{Text: text, Failed: true}
}

// Answerer produces an answer for a question asked under an identity.
// Implementations must always return a displayable Result; there is no
// silent-drop outcome and no automatic retry.
type Answerer interface {
	Ask(ctx context.Context, question, identityID string) Result
}

// Unavailable is the answerer used when no backend is configured. Every
// question fails with the connect marker, so the service still runs and
// history still persists.
type Unavailable struct{}

// Ask always reports the backend as unreachable.
func (Unavailable) Ask(context.Context, string, string) Result {
	return Failure(FailConnectText)
}
