package channelroutes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/chatgenius/internal/handlers"
	"github.com/nikhil/chatgenius/internal/middleware"
)

// ChannelRoutes mounts channels plus the messages and files that live under them.
func ChannelRoutes(api *mux.Router, set *handlers.Set, protect mux.MiddlewareFunc) {
	protectedRouter := api.PathPrefix("/channels").Subrouter()
	protectedRouter.Use(protect, middleware.ResponseWrapperMiddleware)

	protectedRouter.HandleFunc("", set.Channels.CreateChannel).Methods(http.MethodPost)
	protectedRouter.HandleFunc("", set.Channels.ListChannels).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/direct", set.Channels.StartDirectMessage).Methods(http.MethodPost)
	protectedRouter.HandleFunc("/{channelId}", set.Channels.GetChannel).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/{channelId}/join", set.Channels.JoinChannel).Methods(http.MethodPost)
	protectedRouter.HandleFunc("/{channelId}/leave", set.Channels.LeaveChannel).Methods(http.MethodPost)

	protectedRouter.HandleFunc("/{channelId}/messages", set.Messages.ListMessages).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/{channelId}/messages", set.Messages.CreateMessage).Methods(http.MethodPost)

	protectedRouter.HandleFunc("/{channelId}/files", set.Files.ListChannelFiles).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/{channelId}/files", set.Files.Upload).Methods(http.MethodPost)
}
