package messages

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhil/chatgenius/internal/apperror"
	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/models"
	"github.com/nikhil/chatgenius/internal/realtime"
	"github.com/nikhil/chatgenius/internal/store"
)

const maxEmojiLength = 64

type Store interface {
	GetChannel(ctx context.Context, id string) (models.Channel, error)
	CreateMessage(ctx context.Context, message models.Message) error
	GetMessage(ctx context.Context, id string) (models.Message, error)
	ListChannelMessages(ctx context.Context, channelID string) ([]models.Message, error)
	UpdateMessageContent(ctx context.Context, id, content string, at time.Time) error
	AddReaction(ctx context.Context, reaction models.Reaction) error
	RemoveReaction(ctx context.Context, messageID, userID, emoji string) (bool, error)
	ListReactions(ctx context.Context, messageID string) ([]models.Reaction, error)
}

// MessageService handles top-level channel messages and their reactions.
type MessageService struct {
	Store     Store
	Publisher realtime.Publisher
	Log       *logger.Logger
	Now       func() time.Time
}

func NewMessageService(store Store, publisher realtime.Publisher, log *logger.Logger) *MessageService {
	return &MessageService{
		Store:     store,
		Publisher: publisher,
		Log:       log,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// ReactionUpdate is the payload of reaction events.
type ReactionUpdate struct {
	MessageID string            `json:"messageId"`
	ChannelID string            `json:"channelId"`
	Reaction  models.Reaction   `json:"reaction"`
	Reactions []models.Reaction `json:"reactions"`
}

// CreateMessage posts to a channel the author belongs to.
func (ms *MessageService) CreateMessage(ctx context.Context, channelID, userID, content string) (models.Message, error) {
	channel, err := ms.loadChannel(ctx, channelID)
	if err != nil {
		return models.Message{}, err
	}
	if !channel.HasMember(userID) {
		ms.Log.Warn("Message from non-member", "channel_id", channelID, "user_id", userID)
		return models.Message{}, apperror.Forbidden("User is not a member of the channel")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, apperror.InvalidInput("Content is required")
	}

	now := ms.Now()
	message := models.Message{
		ID:        uuid.NewString(),
		Content:   content,
		ChannelID: channelID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := ms.Store.CreateMessage(ctx, message); err != nil {
		ms.Log.Error("Failed to save message", "channel_id", channelID, "user_id", userID, "error", err)
		return models.Message{}, err
	}
	created, err := ms.Store.GetMessage(ctx, message.ID)
	if err != nil {
		return models.Message{}, err
	}
	realtime.Notify(ctx, ms.Publisher, ms.Log, realtime.Event{Name: realtime.EventMessageCreated, Room: channelID, Payload: created})
	return created, nil
}

// ListChannelMessages returns top-level messages oldest first. Private
// channels are hidden from non-members.
func (ms *MessageService) ListChannelMessages(ctx context.Context, channelID, userID string) ([]models.Message, error) {
	channel, err := ms.loadChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel.IsPrivate && !channel.HasMember(userID) {
		return nil, apperror.NotFound("Channel not found")
	}
	return ms.Store.ListChannelMessages(ctx, channelID)
}

func (ms *MessageService) UpdateMessage(ctx context.Context, messageID, userID, content string) (models.Message, error) {
	message, err := ms.loadMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if message.UserID != userID {
		return models.Message{}, apperror.Forbidden("Not authorized to update this message")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, apperror.InvalidInput("Content is required")
	}

	if err := ms.Store.UpdateMessageContent(ctx, messageID, content, ms.Now()); err != nil {
		return models.Message{}, err
	}
	updated, err := ms.Store.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	event := realtime.EventMessageUpdated
	if updated.IsThreadReply() {
		event = realtime.EventThreadMessageUpdated
	}
	realtime.Notify(ctx, ms.Publisher, ms.Log, realtime.Event{Name: event, Room: updated.ChannelID, Payload: updated})
	return updated, nil
}

// AddReaction is idempotent; repeating it still reports the current set.
func (ms *MessageService) AddReaction(ctx context.Context, messageID, userID, emoji string) ([]models.Reaction, error) {
	message, emoji, err := ms.reactionTarget(ctx, messageID, emoji)
	if err != nil {
		return nil, err
	}
	reaction := models.Reaction{MessageID: messageID, UserID: userID, Emoji: emoji, CreatedAt: ms.Now()}
	if err := ms.Store.AddReaction(ctx, reaction); err != nil {
		return nil, err
	}
	return ms.publishReactions(ctx, realtime.EventReactionAdded, message, reaction)
}

func (ms *MessageService) RemoveReaction(ctx context.Context, messageID, userID, emoji string) ([]models.Reaction, error) {
	message, emoji, err := ms.reactionTarget(ctx, messageID, emoji)
	if err != nil {
		return nil, err
	}
	removed, err := ms.Store.RemoveReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return nil, err
	}
	if !removed {
		return ms.Store.ListReactions(ctx, messageID)
	}
	reaction := models.Reaction{MessageID: messageID, UserID: userID, Emoji: emoji, CreatedAt: ms.Now()}
	return ms.publishReactions(ctx, realtime.EventReactionRemoved, message, reaction)
}

func (ms *MessageService) reactionTarget(ctx context.Context, messageID, emoji string) (models.Message, string, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || len(emoji) > maxEmojiLength {
		return models.Message{}, "", apperror.InvalidInput("Emoji is required")
	}
	message, err := ms.loadMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, "", err
	}
	return message, emoji, nil
}

func (ms *MessageService) publishReactions(ctx context.Context, name string, message models.Message, reaction models.Reaction) ([]models.Reaction, error) {
	reactions, err := ms.Store.ListReactions(ctx, message.ID)
	if err != nil {
		return nil, err
	}
	realtime.Notify(ctx, ms.Publisher, ms.Log, realtime.Event{
		Name: name,
		Room: message.ChannelID,
		Payload: ReactionUpdate{
			MessageID: message.ID,
			ChannelID: message.ChannelID,
			Reaction:  reaction,
			Reactions: reactions,
		},
	})
	return reactions, nil
}

func (ms *MessageService) loadChannel(ctx context.Context, channelID string) (models.Channel, error) {
	channel, err := ms.Store.GetChannel(ctx, channelID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Channel{}, apperror.NotFound("Channel not found")
	}
	return channel, err
}

func (ms *MessageService) loadMessage(ctx context.Context, messageID string) (models.Message, error) {
	message, err := ms.Store.GetMessage(ctx, messageID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Message{}, apperror.NotFound("Message not found")
	}
	return message, err
}
