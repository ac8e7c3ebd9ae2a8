package guest

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cha-13/vitalis-chatbot-app/internal/model/identity"
	"github.com/cha-13/vitalis-chatbot-app/internal/service/ask"
	"github.com/cha-13/vitalis-chatbot-app/pkg/utils"
)

// Handler serves the anonymous try-before-signup flow. Guests get a fresh
// id per client session and nothing they say is persisted anywhere.
type Handler struct {
	answerer ask.Answerer
}

// New creates the guest handler.
func New(answerer ask.Answerer) *Handler {
	return &Handler{answerer: answerer}
}

// RegisterRoutes mounts the guest routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/guest/session", h.handleNewGuest)
	r.Post("/guest/ask", h.handleAsk)
}

func (h *Handler) handleNewGuest(w http.ResponseWriter, r *http.Request) {
	guest := identity.NewGuest()
	utils.RespondJSON(w, http.StatusCreated, guest)
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		GuestID  string `json:"guestId"`
		Question string `json:"question"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.GuestID == "" {
		utils.RespondError(w, http.StatusBadRequest, "guestId is required")
		return
	}
	if strings.TrimSpace(payload.Question) == "" {
		utils.RespondError(w, http.StatusBadRequest, "question is required")
		return
	}

	result := h.answerer.Ask(r.Context(), payload.Question, payload.GuestID)
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"answer": result.Text,
		"failed": result.Failed,
	})
}
