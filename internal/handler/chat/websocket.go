package chat

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	chatservice "github.com/cha-13/vitalis-chatbot-app/internal/service/chat"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type socketEvent struct {
	Type      string                   `json:"type"`
	Answer    *chatservice.AnswerEvent `json:"answer,omitempty"`
	Timestamp int64                    `json:"timestamp"`
}

// handleAnswerSocket pushes resolved bot turns to the client so it can end
// its typing indicator even when the answer lands in a background session.
// An in-flight ask is never cancelled by the socket closing; the turn is
// recorded regardless and only the push is lost.
func (h *Handler) handleAnswerSocket(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := ctrl.Subscribe()
	defer ctrl.Unsubscribe(sub)

	// Drain client frames so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(socketEvent{Type: "ready", Timestamp: time.Now().UnixMilli()}); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-sub:
			if !open {
				return
			}
			msg := socketEvent{
				Type:      "answer",
				Answer:    &event,
				Timestamp: time.Now().UnixMilli(),
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("[ws] write failed: %v", err)
				return
			}
		}
	}
}
