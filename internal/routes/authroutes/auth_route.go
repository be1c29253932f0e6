package authroutes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/chatgenius/internal/handlers"
	"github.com/nikhil/chatgenius/internal/middleware"
)

// RegisterAuthRoutes mounts the public signup and login endpoints.
func RegisterAuthRoutes(api *mux.Router, set *handlers.Set, _ mux.MiddlewareFunc) {
	publicRouter := api.PathPrefix("/auth").Subrouter()
	publicRouter.Use(middleware.ResponseWrapperMiddleware)
	publicRouter.HandleFunc("/signup", set.Auth.Signup).Methods(http.MethodPost)
	publicRouter.HandleFunc("/login", set.Auth.Login).Methods(http.MethodPost)
}
