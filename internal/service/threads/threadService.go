package threads

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

type Store interface {
	GetChannel(ctx context.Context, id string) (models.Channel, error)
	CreateMessage(ctx context.Context, message models.Message) error
	GetMessage(ctx context.Context, id string) (models.Message, error)
	ListThreadMessages(ctx context.Context, parentMessageID string) ([]models.Message, error)
	UpdateMessageContent(ctx context.Context, id, content string, at time.Time) error
}

// ThreadService owns replies to a parent message.
type ThreadService struct {
	Store     Store
	Publisher realtime.Publisher
	Log       *logger.Logger
	Now       func() time.Time
}

func NewThreadService(store Store, publisher realtime.Publisher, log *logger.Logger) *ThreadService {
	return &ThreadService{
		Store:     store,
		Publisher: publisher,
		Log:       log,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateThreadMessage replies to parentMessageID. The reply always lands in
// the parent's channel.
func (ts *ThreadService) CreateThreadMessage(ctx context.Context, content, parentMessageID, userID string) (models.Message, error) {
	parent, err := ts.loadParent(ctx, parentMessageID, userID)
	if err != nil {
		return models.Message{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, apperror.InvalidInput("Content is required")
	}

	now := ts.Now()
	reply := models.Message{
		ID:              uuid.NewString(),
		Content:         content,
		ChannelID:       parent.ChannelID,
		UserID:          userID,
		ParentMessageID: parent.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := ts.Store.CreateMessage(ctx, reply); err != nil {
		ts.Log.Error("Failed to create thread message", "parent_message_id", parent.ID, "user_id", userID, "error", err)
		return models.Message{}, err
	}

	created, err := ts.Store.GetMessage(ctx, reply.ID)
	if err != nil {
		return models.Message{}, err
	}
	realtime.Notify(ctx, ts.Publisher, ts.Log, realtime.Event{
		Name:    realtime.EventThreadMessageCreated,
		Room:    created.ChannelID,
		Payload: created,
	})
	return created, nil
}

// GetThreadMessages lists replies in creation order.
func (ts *ThreadService) GetThreadMessages(ctx context.Context, parentMessageID, userID string) ([]models.Message, error) {
	if _, err := ts.loadParent(ctx, parentMessageID, userID); err != nil {
		return nil, err
	}
	return ts.Store.ListThreadMessages(ctx, parentMessageID)
}

// UpdateThreadMessage lets the author edit a reply.
func (ts *ThreadService) UpdateThreadMessage(ctx context.Context, messageID, userID, content string) (models.Message, error) {
	message, err := ts.loadMessage(ctx, messageID, "Thread message not found")
	if err != nil {
		return models.Message{}, err
	}
	if !message.IsThreadReply() {
		return models.Message{}, apperror.NotFound("Thread message not found")
	}
	if message.UserID != userID {
		ts.Log.Warn("Unauthorized thread message update", "message_id", messageID, "user_id", userID)
		return models.Message{}, apperror.Forbidden("Not authorized to update this message")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, apperror.InvalidInput("Content is required")
	}

	if err := ts.Store.UpdateMessageContent(ctx, messageID, content, ts.Now()); err != nil {
		return models.Message{}, err
	}
	updated, err := ts.Store.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	realtime.Notify(ctx, ts.Publisher, ts.Log, realtime.Event{
		Name:    realtime.EventThreadMessageUpdated,
		Room:    updated.ChannelID,
		Payload: updated,
	})
	return updated, nil
}

func (ts *ThreadService) loadMessage(ctx context.Context, id, notFound string) (models.Message, error) {
	message, err := ts.Store.GetMessage(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Message{}, apperror.NotFound(notFound)
	}
	return message, err
}

// loadParent hides parents in private channels from non-members.
func (ts *ThreadService) loadParent(ctx context.Context, parentMessageID, userID string) (models.Message, error) {
	parent, err := ts.loadMessage(ctx, parentMessageID, "Parent message not found")
	if err != nil {
		return models.Message{}, err
	}
	channel, err := ts.Store.GetChannel(ctx, parent.ChannelID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Message{}, apperror.NotFound("Parent message not found")
	}
	if err != nil {
		return models.Message{}, err
	}
	if channel.IsPrivate && !channel.HasMember(userID) {
		return models.Message{}, apperror.NotFound("Parent message not found")
	}
	return parent, nil
}
