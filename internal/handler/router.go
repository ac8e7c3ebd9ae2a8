package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chathandler "github.com/cha-13/vitalis-chatbot-app/internal/handler/chat"
	guesthandler "github.com/cha-13/vitalis-chatbot-app/internal/handler/guest"
	profilehandler "github.com/cha-13/vitalis-chatbot-app/internal/handler/profile"
	middlewarePkg "github.com/cha-13/vitalis-chatbot-app/internal/middleware"
	"github.com/cha-13/vitalis-chatbot-app/internal/model/identity"
	"github.com/cha-13/vitalis-chatbot-app/internal/service/ask"
	chatservice "github.com/cha-13/vitalis-chatbot-app/internal/service/chat"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(registry identity.Registry, chatSvc *chatservice.Service, answerer ask.Answerer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chathandler.New(chatSvc, registry)
	guestHandler := guesthandler.New(answerer)
	profileHandler := profilehandler.New(registry, chatSvc)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		guestHandler.RegisterRoutes(api)
		profileHandler.RegisterRoutes(api)
	})

	return r
}
