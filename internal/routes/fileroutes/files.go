package fileroutes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/chatgenius/internal/handlers"
	"github.com/nikhil/chatgenius/internal/middleware"
)

func FileRoutes(api *mux.Router, set *handlers.Set, protect mux.MiddlewareFunc) {
	protectedRouter := api.PathPrefix("/files").Subrouter()
	protectedRouter.Use(protect, middleware.ResponseWrapperMiddleware)

	protectedRouter.HandleFunc("/{fileId}/processed", set.Files.MarkProcessed).Methods(http.MethodPatch)
}
