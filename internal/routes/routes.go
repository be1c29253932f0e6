package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/chatgenius/internal/handlers"
	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/metrics"
	"github.com/nikhil/chatgenius/internal/middleware"
	"github.com/nikhil/chatgenius/internal/routes/authroutes"
	"github.com/nikhil/chatgenius/internal/routes/channelroutes"
	"github.com/nikhil/chatgenius/internal/routes/fileroutes"
	"github.com/nikhil/chatgenius/internal/routes/messageroutes"
	"github.com/nikhil/chatgenius/internal/routes/userroutes"
)

// List of all route registration functions
var routeModules = []func(*mux.Router, *handlers.Set, mux.MiddlewareFunc){
	authroutes.RegisterAuthRoutes,
	userroutes.UserRoutes,
	channelroutes.ChannelRoutes,
	messageroutes.MessageRoutes,
	messageroutes.ThreadRoutes,
	fileroutes.FileRoutes,
}

type Deps struct {
	Handlers *handlers.Set
	Tokens   middleware.TokenParser
	Log      *logger.Logger
}

// RegisterAllRoutes builds the router: the REST API under /api, the
// websocket endpoint and the metrics endpoint.
func RegisterAllRoutes(deps Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger(deps.Log))

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", deps.Handlers.Health.Health).Methods(http.MethodGet)

	protect := mux.MiddlewareFunc(middleware.AuthMiddleware(deps.Tokens))
	for _, register := range routeModules {
		register(api, deps.Handlers, protect)
	}

	RegisterWebSocketRoutes(router, deps)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	return router
}

// RegisterWebSocketRoutes registers all WebSocket related routes
func RegisterWebSocketRoutes(router *mux.Router, deps Deps) {
	wsAuth := middleware.WebSocketAuthMiddleware(deps.Tokens)
	router.Handle("/ws", wsAuth(http.HandlerFunc(deps.Handlers.WebSocket.HandleWebSocket))).Methods(http.MethodGet)
}

// Handler wraps the router with CORS so preflight requests are answered
// before route matching.
func Handler(deps Deps, corsOrigin string) http.Handler {
	return middleware.CORS(corsOrigin)(RegisterAllRoutes(deps))
}
