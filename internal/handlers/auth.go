package handlers

import (
	"net/http"

	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/models"
	services "github.com/nikhil/chatgenius/internal/service/auth"
)

type AuthHandler struct {
	Service *services.AuthService
	Log     *logger.Logger
}

// NewAuthHandler creates a new instance of AuthHandler
func NewAuthHandler(service *services.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{Service: service, Log: log}
}

type signupRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Signup handles the user registration request
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}

	user, token, err := h.Service.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// Login handles the user authentication request
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}

	user, token, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}
