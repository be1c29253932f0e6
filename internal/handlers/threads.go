package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/models"
	"github.com/nikhil/chatgenius/internal/service/threads"
)

type ThreadHandler struct {
	Service *threads.ThreadService
	Log     *logger.Logger
}

func NewThreadHandler(service *threads.ThreadService, log *logger.Logger) *ThreadHandler {
	return &ThreadHandler{Service: service, Log: log}
}

type threadMessageRequest struct {
	Content         string `json:"content" validate:"required"`
	ParentMessageID string `json:"parentMessageId" validate:"required"`
}

func (h *ThreadHandler) CreateThreadMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req threadMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}

	reply, err := h.Service.CreateThreadMessage(r.Context(), req.Content, req.ParentMessageID, userID)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, reply)
}

func (h *ThreadHandler) GetThreadMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	replies, err := h.Service.GetThreadMessages(r.Context(), mux.Vars(r)["parentMessageId"], userID)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	if replies == nil {
		replies = []models.Message{}
	}
	respondWithJSON(w, http.StatusOK, replies)
}

func (h *ThreadHandler) UpdateThreadMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}

	reply, err := h.Service.UpdateThreadMessage(r.Context(), mux.Vars(r)["messageId"], userID, req.Content)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, reply)
}
