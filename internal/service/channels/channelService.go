package channels

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

// Store is the slice of the persistence gateway the channel rules need.
type Store interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	CreateChannel(ctx context.Context, channel models.Channel, memberIDs []string) error
	GetChannel(ctx context.Context, id string) (models.Channel, error)
	FindDirectChannel(ctx context.Context, ownerID, counterpartID string) (models.Channel, error)
	ListChannelsForUser(ctx context.Context, userID string) ([]models.Channel, error)
	ListDirectChannels(ctx context.Context, ownerID string) ([]models.Channel, error)
	AddChannelMember(ctx context.Context, channelID, userID string, at time.Time) error
	RemoveChannelMember(ctx context.Context, channelID, userID string, at time.Time) error
}

// ChannelService enforces membership and channel rules.
type ChannelService struct {
	Store     Store
	Publisher realtime.Publisher
	Log       *logger.Logger
	Now       func() time.Time
}

func NewChannelService(store Store, publisher realtime.Publisher, log *logger.Logger) *ChannelService {
	return &ChannelService{
		Store:     store,
		Publisher: publisher,
		Log:       log,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateChannel creates a STANDARD channel owned by ownerID. A dm-<username>
// name is treated as a request to start a direct message with that user. The
// boolean reports whether a new channel was created.
func (cs *ChannelService) CreateChannel(ctx context.Context, name string, isPrivate bool, ownerID string) (models.Channel, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Channel{}, false, apperror.InvalidInput("Channel name is required")
	}

	if username, ok := models.DirectCounterpartUsername(name); ok {
		target, err := cs.Store.GetUserByUsername(ctx, username)
		if errors.Is(err, store.ErrNotFound) {
			return models.Channel{}, false, apperror.NotFound("User not found")
		}
		if err != nil {
			return models.Channel{}, false, err
		}
		return cs.StartDirectMessage(ctx, ownerID, target.ID)
	}

	now := cs.Now()
	channel := models.Channel{
		ID:        uuid.NewString(),
		Name:      name,
		IsPrivate: isPrivate,
		Kind:      models.ChannelKindStandard,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := cs.Store.CreateChannel(ctx, channel, []string{ownerID}); err != nil {
		cs.Log.Error("Failed to create channel", "name", name, "owner_id", ownerID, "error", err)
		return models.Channel{}, false, err
	}

	created, err := cs.Store.GetChannel(ctx, channel.ID)
	if err != nil {
		return models.Channel{}, false, err
	}
	created = created.WithMemberCount()

	cs.Log.Info("Channel created", "channel_id", created.ID, "owner_id", ownerID, "private", isPrivate)
	realtime.Notify(ctx, cs.Publisher, cs.Log, realtime.Event{Name: realtime.EventChannelCreated, Payload: created})
	return created, true, nil
}

func (cs *ChannelService) JoinChannel(ctx context.Context, channelID, userID string) (models.Channel, error) {
	channel, err := cs.loadChannel(ctx, channelID)
	if err != nil {
		return models.Channel{}, err
	}
	if channel.HasMember(userID) {
		return models.Channel{}, apperror.New(apperror.ErrAlreadyMember, "Already a member of this channel")
	}

	if err := cs.Store.AddChannelMember(ctx, channelID, userID, cs.Now()); err != nil {
		cs.Log.Error("Failed to add channel member", "channel_id", channelID, "user_id", userID, "error", err)
		return models.Channel{}, err
	}
	return cs.publishUpdated(ctx, channelID)
}

// LeaveChannel checks existence, then membership, then ownership.
func (cs *ChannelService) LeaveChannel(ctx context.Context, channelID, userID string) (models.Channel, error) {
	channel, err := cs.loadChannel(ctx, channelID)
	if err != nil {
		return models.Channel{}, err
	}
	if !channel.HasMember(userID) {
		return models.Channel{}, apperror.New(apperror.ErrNotMember, "Not a member of this channel")
	}
	if channel.OwnerID == userID {
		return models.Channel{}, apperror.New(apperror.ErrOwnerCannotLeave, "Channel owner cannot leave the channel")
	}

	if err := cs.Store.RemoveChannelMember(ctx, channelID, userID, cs.Now()); err != nil {
		cs.Log.Error("Failed to remove channel member", "channel_id", channelID, "user_id", userID, "error", err)
		return models.Channel{}, err
	}
	// the user's sessions must stop following the room
	realtime.Notify(ctx, cs.Publisher, cs.Log, realtime.Event{
		Name:    realtime.EventMemberRemoved,
		Room:    channelID,
		Payload: realtime.MemberRemoval{UserID: userID},
	})
	return cs.publishUpdated(ctx, channelID)
}

func (cs *ChannelService) publishUpdated(ctx context.Context, channelID string) (models.Channel, error) {
	updated, err := cs.loadChannel(ctx, channelID)
	if err != nil {
		return models.Channel{}, err
	}
	realtime.Notify(ctx, cs.Publisher, cs.Log, realtime.Event{Name: realtime.EventChannelUpdated, Payload: updated})
	return updated, nil
}

// ListChannels splits what userID can see into standard channels and the
// direct messages userID started.
func (cs *ChannelService) ListChannels(ctx context.Context, userID string) (models.ChannelList, error) {
	channels, err := cs.Store.ListChannelsForUser(ctx, userID)
	if err != nil {
		return models.ChannelList{}, err
	}
	direct, err := cs.Store.ListDirectChannels(ctx, userID)
	if err != nil {
		return models.ChannelList{}, err
	}
	return models.ChannelList{
		Channels:       withMemberCounts(channels),
		DirectMessages: withMemberCounts(direct),
	}, nil
}

// StartDirectMessage returns the initiator's existing DM with target, or
// creates it. Only creation publishes channel:created; an existing DM whose
// counterpart left gets them back.
func (cs *ChannelService) StartDirectMessage(ctx context.Context, initiatorID, targetUserID string) (models.Channel, bool, error) {
	if targetUserID == "" || targetUserID == initiatorID {
		return models.Channel{}, false, apperror.InvalidInput("Cannot start a direct message with yourself")
	}
	target, err := cs.Store.GetUserByID(ctx, targetUserID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Channel{}, false, apperror.NotFound("User not found")
	}
	if err != nil {
		return models.Channel{}, false, err
	}

	existing, err := cs.Store.FindDirectChannel(ctx, initiatorID, target.ID)
	if err == nil {
		return cs.restoreCounterpart(ctx, existing)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return models.Channel{}, false, err
	}

	now := cs.Now()
	channel := models.Channel{
		ID:            uuid.NewString(),
		Name:          models.DirectChannelName(target.Username),
		IsPrivate:     true,
		Kind:          models.ChannelKindDirect,
		OwnerID:       initiatorID,
		CounterpartID: target.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = cs.Store.CreateChannel(ctx, channel, []string{initiatorID, target.ID})
	if errors.Is(err, store.ErrDuplicate) {
		// lost a race with a concurrent request for the same pair
		existing, findErr := cs.Store.FindDirectChannel(ctx, initiatorID, target.ID)
		if findErr != nil {
			return models.Channel{}, false, findErr
		}
		return cs.restoreCounterpart(ctx, existing)
	}
	if err != nil {
		cs.Log.Error("Failed to create direct channel", "owner_id", initiatorID, "counterpart_id", target.ID, "error", err)
		return models.Channel{}, false, err
	}

	created, err := cs.loadChannel(ctx, channel.ID)
	if err != nil {
		return models.Channel{}, false, err
	}
	cs.Log.Info("Direct channel created", "channel_id", created.ID, "owner_id", initiatorID, "counterpart_id", target.ID)
	realtime.Notify(ctx, cs.Publisher, cs.Log, realtime.Event{Name: realtime.EventChannelCreated, Payload: created})
	return created, true, nil
}

// restoreCounterpart re-adds a counterpart who left the DM so the
// conversation is two-sided again.
func (cs *ChannelService) restoreCounterpart(ctx context.Context, dm models.Channel) (models.Channel, bool, error) {
	if dm.HasMember(dm.CounterpartID) {
		return dm.WithMemberCount(), false, nil
	}
	if err := cs.Store.AddChannelMember(ctx, dm.ID, dm.CounterpartID, cs.Now()); err != nil {
		cs.Log.Error("Failed to restore direct message counterpart", "channel_id", dm.ID, "counterpart_id", dm.CounterpartID, "error", err)
		return models.Channel{}, false, err
	}
	updated, err := cs.publishUpdated(ctx, dm.ID)
	return updated, false, err
}

// GetChannel hides private channels from non-members.
func (cs *ChannelService) GetChannel(ctx context.Context, channelID, userID string) (models.Channel, error) {
	channel, err := cs.loadChannel(ctx, channelID)
	if err != nil {
		return models.Channel{}, err
	}
	if channel.IsPrivate && !channel.HasMember(userID) {
		return models.Channel{}, apperror.NotFound("Channel not found")
	}
	return channel, nil
}

// AuthorizeRoom lets a websocket session follow a channel it can see.
func (cs *ChannelService) AuthorizeRoom(ctx context.Context, userID, room string) error {
	_, err := cs.GetChannel(ctx, room, userID)
	return err
}

func (cs *ChannelService) loadChannel(ctx context.Context, channelID string) (models.Channel, error) {
	channel, err := cs.Store.GetChannel(ctx, channelID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Channel{}, apperror.NotFound("Channel not found")
	}
	if err != nil {
		return models.Channel{}, err
	}
	return channel.WithMemberCount(), nil
}

func withMemberCounts(channels []models.Channel) []models.Channel {
	out := make([]models.Channel, 0, len(channels))
	for _, channel := range channels {
		out = append(out, channel.WithMemberCount())
	}
	return out
}
