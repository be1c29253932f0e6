package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/models"
	"github.com/nikhil/chatgenius/internal/service/users"
)

type UserHandler struct {
	Service *users.ProfileService
	Log     *logger.Logger
}

func NewUserHandler(service *users.ProfileService, log *logger.Logger) *UserHandler {
	return &UserHandler{Service: service, Log: log}
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=online offline away"`
}

// ListUsers returns everyone but the caller.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.Service.ListUsers(r.Context(), userID)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	if list == nil {
		list = []models.User{}
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.writeUser(w, r, userID)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	h.writeUser(w, r, mux.Vars(r)["userId"])
}

func (h *UserHandler) writeUser(w http.ResponseWriter, r *http.Request, id string) {
	user, err := h.Service.GetUser(r.Context(), id)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// UpdateStatus sets the caller's presence status.
func (h *UserHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	status := models.UserStatus(req.Status)
	if err := h.Service.SetStatus(r.Context(), userID, status); err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, users.StatusChange{UserID: userID, Status: status})
}
