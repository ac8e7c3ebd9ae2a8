package profile

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cha-13/vitalis-chatbot-app/internal/model/identity"
	chatservice "github.com/cha-13/vitalis-chatbot-app/internal/service/chat"
	"github.com/cha-13/vitalis-chatbot-app/pkg/utils"
)

// Handler manages identity profiles and account deletion. Sign-in itself is
// an upstream concern; this is the registry surface the chat core depends
// on for display names, photos, and the account-destroy lifecycle call.
type Handler struct {
	registry identity.Registry
	chatSvc  *chatservice.Service
}

// New creates the profile handler.
func New(registry identity.Registry, chatSvc *chatservice.Service) *Handler {
	return &Handler{registry: registry, chatSvc: chatSvc}
}

// RegisterRoutes mounts the profile and account routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/profile", h.handleCreate)
	r.Get("/profile/{id}", h.handleGet)
	r.Put("/profile/{id}", h.handleUpdate)
	r.Delete("/account/{id}", h.handleDeleteAccount)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		DisplayName string `json:"displayName"`
		PhotoURL    string `json:"photoURL"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(payload.DisplayName)
	if name == "" {
		utils.RespondError(w, http.StatusBadRequest, "displayName is required")
		return
	}

	ident := identity.Identity{
		ID:          uuid.NewString(),
		DisplayName: name,
		PhotoURL:    payload.PhotoURL,
	}
	h.registry.Put(ident)

	utils.RespondJSON(w, http.StatusCreated, ident)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.registry.FindByID(chi.URLParam(r, "id"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "identity not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, ident)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.registry.FindByID(chi.URLParam(r, "id"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "identity not found")
		return
	}

	var payload struct {
		DisplayName string `json:"displayName"`
		PhotoURL    string `json:"photoURL"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if name := strings.TrimSpace(payload.DisplayName); name != "" {
		ident.DisplayName = name
	}
	if payload.PhotoURL != "" {
		ident.PhotoURL = payload.PhotoURL
	}
	h.registry.Put(ident)

	utils.RespondJSON(w, http.StatusOK, ident)
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ident, ok := h.registry.FindByID(id)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "identity not found")
		return
	}

	// Stored sessions go first; if that fails the account stays usable
	// rather than orphaning its data.
	if err := h.chatSvc.DeleteAccount(r.Context(), ident); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to delete account data")
		return
	}
	h.registry.Destroy(id)

	w.WriteHeader(http.StatusNoContent)
}
