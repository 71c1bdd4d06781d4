package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/seido-app/courier/internal/application"
)

// Handler is the HTTP adapter entrypoint. It depends only on the application
// service to keep the adapter boundary clean.
type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", handler.listNotifications)
			r.Get("/unread-count", handler.unreadCount)
			r.Post("/{notification_id}/read", handler.markRead)
		})

		r.Route("/mailboxes", func(r chi.Router) {
			r.Get("/", handler.listMailboxes)
			r.Post("/sync", handler.syncAllMailboxes)
			r.Post("/{connection_id}/sync", handler.syncMailbox)
			r.Post("/{connection_id}/reset-cursor", handler.resetMailboxCursor)
		})

		r.Route("/blacklist", func(r chi.Router) {
			r.Get("/", handler.listBlacklist)
			r.Post("/", handler.addBlacklistEntry)
		})

		r.Get("/dispatch-log", handler.listDispatchLog)
	})

	return r
}
