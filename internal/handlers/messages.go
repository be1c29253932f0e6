package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/models"
	"github.com/nikhil/chatgenius/internal/service/messages"
)

type MessageHandler struct {
	Service *messages.MessageService
	Log     *logger.Logger
}

func NewMessageHandler(service *messages.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{Service: service, Log: log}
}

type contentRequest struct {
	Content string `json:"content" validate:"required"`
}

type reactionRequest struct {
	Emoji string `json:"emoji" validate:"required,max=64"`
}

func (h *MessageHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}

	message, err := h.Service.CreateMessage(r.Context(), mux.Vars(r)["channelId"], userID, req.Content)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, message)
}

// ListMessages returns the channel's top-level messages, oldest first.
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.Service.ListChannelMessages(r.Context(), mux.Vars(r)["channelId"], userID)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	if list == nil {
		list = []models.Message{}
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *MessageHandler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}

	message, err := h.Service.UpdateMessage(r.Context(), mux.Vars(r)["messageId"], userID, req.Content)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, message)
}

func (h *MessageHandler) AddReaction(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, h.Service.AddReaction)
}

func (h *MessageHandler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, h.Service.RemoveReaction)
}

type reactFunc func(ctx context.Context, messageID, userID, emoji string) ([]models.Reaction, error)

func (h *MessageHandler) react(w http.ResponseWriter, r *http.Request, action reactFunc) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req reactionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}

	reactions, err := action(r.Context(), mux.Vars(r)["messageId"], userID, req.Emoji)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	if reactions == nil {
		reactions = []models.Reaction{}
	}
	respondWithJSON(w, http.StatusOK, reactions)
}
