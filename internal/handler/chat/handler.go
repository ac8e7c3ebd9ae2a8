package chat

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cha-13/vitalis-chatbot-app/internal/model/identity"
	chatservice "github.com/cha-13/vitalis-chatbot-app/internal/service/chat"
	"github.com/cha-13/vitalis-chatbot-app/internal/store"
	"github.com/cha-13/vitalis-chatbot-app/pkg/utils"
)

// Handler exposes the conversation-session operations over HTTP.
type Handler struct {
	chatSvc  *chatservice.Service
	registry identity.Registry
}

// New creates the chat handler.
func New(chatSvc *chatservice.Service, registry identity.Registry) *Handler {
	return &Handler{chatSvc: chatSvc, registry: registry}
}

// RegisterRoutes mounts the chat routes. Every route names its identity
// explicitly; there is no ambient current-user state.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chat/{identityID}", func(r chi.Router) {
		r.Post("/messages", h.handleSubmit)
		r.Get("/history", h.handleHistory)
		r.Post("/sessions", h.handleNewSession)
		r.Post("/sessions/{index}/resume", h.handleResume)
		r.Get("/sessions/current", h.handleCurrent)
		r.Post("/clear", h.handleClearAll)
		r.Get("/ws", h.handleAnswerSocket)
	})
}

// controllerFor resolves the request identity and its session controller,
// writing the error response itself when resolution fails.
func (h *Handler) controllerFor(w http.ResponseWriter, r *http.Request) (*chatservice.Controller, bool) {
	identityID := chi.URLParam(r, "identityID")

	ident, ok := h.registry.FindByID(identityID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "identity not found")
		return nil, false
	}

	ctrl, err := h.chatSvc.Controller(r.Context(), ident)
	if err != nil {
		if errors.Is(err, store.ErrIdentityRevoked) {
			utils.RespondError(w, http.StatusGone, "account deleted")
			return nil, false
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load sessions")
		return nil, false
	}
	return ctrl, true
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := ctrl.Submit(r.Context(), payload.Text)
	if err != nil {
		if errors.Is(err, chatservice.ErrEmptyInput) {
			utils.RespondError(w, http.StatusBadRequest, "text is required")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	body := map[string]interface{}{
		"sessionId":    receipt.SessionID,
		"sessionIndex": receipt.SessionIndex,
		"saved":        receipt.PersistErr == nil,
	}
	if receipt.PersistErr != nil {
		// The turn is kept in memory; the client should warn that it may
		// not have been saved.
		utils.RespondJSON(w, http.StatusConflict, body)
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, body)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controllerFor(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": ctrl.History(),
	})
}

func (h *Handler) handleNewSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controllerFor(w, r)
	if !ok {
		return
	}
	ctrl.StartNewSession()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	if err := ctrl.ResumeSession(index); err != nil {
		utils.RespondError(w, http.StatusNotFound, "no such session")
		return
	}

	turns, _ := ctrl.ActiveTranscript()
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"messages": turns})
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	turns, active := ctrl.ActiveTranscript()
	if !active {
		utils.RespondError(w, http.StatusNotFound, "no active session")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"messages": turns})
}

func (h *Handler) handleClearAll(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controllerFor(w, r)
	if !ok {
		return
	}

	if err := ctrl.ClearAll(r.Context()); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to persist cleared history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
