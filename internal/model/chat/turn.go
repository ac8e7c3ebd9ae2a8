package chat

import (
	"errors"
	"strings"
)

// Sender tags who produced a turn.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

var ErrEmptyText = errors.New("turn text is empty")

// Turn is one message exchanged in a conversation. Turns are append-only:
// once constructed they are never mutated, and display-only artifacts such
// as typing placeholders are never stored as turns.
type Turn struct {
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}

// NewTurn builds a turn from trimmed input. Empty text is rejected so a
// session can never hold a blank message.
func NewTurn(text string, sender Sender) (Turn, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Turn{}, ErrEmptyText
	}
	return Turn{Text: trimmed, Sender: sender}, nil
}

// UserTurn builds a user-attributed turn.
func UserTurn(text string) (Turn, error) {
	return NewTurn(text, SenderUser)
}

// BotTurn builds a bot-attributed turn. Bot text comes from the answer
// client which always yields non-empty text, so failure here indicates a
// programming error upstream.
func BotTurn(text string) (Turn, error) {
	return NewTurn(text, SenderBot)
}
