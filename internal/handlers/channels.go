package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/models"
	"github.com/nikhil/chatgenius/internal/service/channels"
)

type ChannelHandler struct {
	Service *channels.ChannelService
	Log     *logger.Logger
}

func NewChannelHandler(service *channels.ChannelService, log *logger.Logger) *ChannelHandler {
	return &ChannelHandler{Service: service, Log: log}
}

type createChannelRequest struct {
	Name      string `json:"name" validate:"required,max=80"`
	IsPrivate bool   `json:"isPrivate"`
}

type directMessageRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// CreateChannel answers 201 for a new channel and 200 when a dm- name
// resolved to an existing direct channel.
func (h *ChannelHandler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req createChannelRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}

	channel, created, err := h.Service.CreateChannel(r.Context(), req.Name, req.IsPrivate, userID)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	respondWithJSON(w, createdStatus(created), channel)
}

func (h *ChannelHandler) StartDirectMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req directMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}

	channel, created, err := h.Service.StartDirectMessage(r.Context(), userID, req.UserID)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	respondWithJSON(w, createdStatus(created), channel)
}

func (h *ChannelHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.Service.ListChannels(r.Context(), userID)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	if list.Channels == nil {
		list.Channels = []models.Channel{}
	}
	if list.DirectMessages == nil {
		list.DirectMessages = []models.Channel{}
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *ChannelHandler) GetChannel(w http.ResponseWriter, r *http.Request) {
	h.channelAction(w, r, h.Service.GetChannel)
}

func (h *ChannelHandler) JoinChannel(w http.ResponseWriter, r *http.Request) {
	h.channelAction(w, r, h.Service.JoinChannel)
}

func (h *ChannelHandler) LeaveChannel(w http.ResponseWriter, r *http.Request) {
	h.channelAction(w, r, h.Service.LeaveChannel)
}

func (h *ChannelHandler) channelAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, channelID, userID string) (models.Channel, error)) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	channel, err := action(r.Context(), mux.Vars(r)["channelId"], userID)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, channel)
}

func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}
