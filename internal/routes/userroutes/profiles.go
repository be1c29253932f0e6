package userroutes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/chatgenius/internal/handlers"
	"github.com/nikhil/chatgenius/internal/middleware"
)

func UserRoutes(api *mux.Router, set *handlers.Set, protect mux.MiddlewareFunc) {
	protectedRouter := api.PathPrefix("/users").Subrouter()
	protectedRouter.Use(protect, middleware.ResponseWrapperMiddleware)

	protectedRouter.HandleFunc("", set.Users.ListUsers).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/me", set.Users.GetMe).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/me/status", set.Users.UpdateStatus).Methods(http.MethodPatch)
	protectedRouter.HandleFunc("/{userId}", set.Users.GetUser).Methods(http.MethodGet)
	protectedRouter.HandleFunc("/{userId}/files", set.Files.ListUserFiles).Methods(http.MethodGet)
}
