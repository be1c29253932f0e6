package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nikhil/chatgenius/internal/apperror"
	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/metrics"
	"github.com/nikhil/chatgenius/internal/middleware"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, errCode, message string) {
	respondWithJSON(w, code, errorBody{Error: message, Code: errCode})
}

// respondWithAppError maps a service error onto the wire. Rule violations are
// counted; anything else is logged and reported as a 500.
func respondWithAppError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	status, code := apperror.Status(err)
	if status == http.StatusInternalServerError {
		log.WithContext(r.Context()).Error("Request failed", "path", r.URL.Path, "error", err)
	} else {
		metrics.RuleRejections.WithLabelValues(apperror.Kind(err)).Inc()
	}
	respondWithError(w, status, code, apperror.Message(err))
}

// decodeJSON reads and validates a request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.InvalidInput("Invalid request payload")
	}
	return validateStruct(dst)
}

func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
	}
	return userID, ok
}

func isRequestTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// Set bundles every handler the router mounts.
type Set struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Channels  *ChannelHandler
	Messages  *MessageHandler
	Threads   *ThreadHandler
	Files     *FileHandler
	WebSocket *WebSocketHandler
	Health    *HealthHandler
}
