package messageroutes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/chatgenius/internal/handlers"
	"github.com/nikhil/chatgenius/internal/middleware"
)

func MessageRoutes(api *mux.Router, set *handlers.Set, protect mux.MiddlewareFunc) {
	protectedRouter := api.PathPrefix("/messages").Subrouter()
	protectedRouter.Use(protect, middleware.ResponseWrapperMiddleware)

	protectedRouter.HandleFunc("/{messageId}", set.Messages.UpdateMessage).Methods(http.MethodPatch)
	protectedRouter.HandleFunc("/{messageId}/reactions", set.Messages.AddReaction).Methods(http.MethodPost)
	protectedRouter.HandleFunc("/{messageId}/reactions", set.Messages.RemoveReaction).Methods(http.MethodDelete)
}

func ThreadRoutes(api *mux.Router, set *handlers.Set, protect mux.MiddlewareFunc) {
	protectedRouter := api.PathPrefix("/threads").Subrouter()
	protectedRouter.Use(protect, middleware.ResponseWrapperMiddleware)

	protectedRouter.HandleFunc("", set.Threads.CreateThreadMessage).Methods(http.MethodPost)
	protectedRouter.HandleFunc("/{parentMessageId}", set.Threads.GetThreadMessages).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/{messageId}", set.Threads.UpdateThreadMessage).Methods(http.MethodPatch)
}
