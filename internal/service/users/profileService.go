package users

import (
	"context"
	"errors"
	"time"

	"github.com/nikhil/chatgenius/internal/apperror"
	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/models"
	"github.com/nikhil/chatgenius/internal/realtime"
	"github.com/nikhil/chatgenius/internal/store"
)

const (
	AssistantID       = "assistant-bot"
	AssistantUsername = "Assistant"
	AssistantEmail    = "assistant@chatgenius.ai"
)

type Store interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUserByID(ctx context.Context, id string) (models.User, error)
	ListUsers(ctx context.Context, excludeID string) ([]models.User, error)
	UpdateUserStatus(ctx context.Context, id string, status models.UserStatus, at time.Time) error
}

type ProfileService struct {
	Store     Store
	Publisher realtime.Publisher
	Log       *logger.Logger
	Now       func() time.Time
}

func NewProfileService(store Store, publisher realtime.Publisher, log *logger.Logger) *ProfileService {
	return &ProfileService{
		Store:     store,
		Publisher: publisher,
		Log:       log,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// StatusChange is the payload of user:status.
type StatusChange struct {
	UserID string            `json:"userId"`
	Status models.UserStatus `json:"status"`
}

// ListUsers returns everyone except excludeID, ordered by username.
func (p *ProfileService) ListUsers(ctx context.Context, excludeID string) ([]models.User, error) {
	return p.Store.ListUsers(ctx, excludeID)
}

func (p *ProfileService) GetUser(ctx context.Context, id string) (models.User, error) {
	user, err := p.Store.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, apperror.NotFound("User not found")
	}
	return user, err
}

// SetStatus records presence and announces it to every session.
func (p *ProfileService) SetStatus(ctx context.Context, userID string, status models.UserStatus) error {
	if !status.Valid() {
		return apperror.InvalidInput("Unknown status")
	}
	err := p.Store.UpdateUserStatus(ctx, userID, status, p.Now())
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound("User not found")
	}
	if err != nil {
		p.Log.Error("Failed to update user status", "user_id", userID, "status", status, "error", err)
		return err
	}
	realtime.Notify(ctx, p.Publisher, p.Log, realtime.Event{
		Name:    realtime.EventUserStatus,
		Payload: StatusChange{UserID: userID, Status: status},
	})
	return nil
}

// SeedAssistant creates the assistant account once. Safe on every boot.
func (p *ProfileService) SeedAssistant(ctx context.Context) error {
	_, err := p.Store.GetUserByID(ctx, AssistantID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	now := p.Now()
	err = p.Store.CreateUser(ctx, models.User{
		ID:        AssistantID,
		Username:  AssistantUsername,
		Email:     AssistantEmail,
		Status:    models.UserStatusOnline,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil && !errors.Is(err, store.ErrDuplicate) {
		return err
	}
	p.Log.Info("Assistant user ready", "user_id", AssistantID)
	return nil
}

// Connected and Disconnected are the hub's presence callbacks.
func (p *ProfileService) Connected(ctx context.Context, userID string) {
	if err := p.SetStatus(ctx, userID, models.UserStatusOnline); err != nil {
		p.Log.Warn("Failed to mark user online", "user_id", userID, "error", err)
	}
}

func (p *ProfileService) Disconnected(ctx context.Context, userID string) {
	if err := p.SetStatus(ctx, userID, models.UserStatusOffline); err != nil {
		p.Log.Warn("Failed to mark user offline", "user_id", userID, "error", err)
	}
}
