package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nikhil/chatgenius/internal/models"
)

type memoryChannel struct {
	channel models.Channel
	members map[string]time.Time
}

type memoryMessage struct {
	message models.Message
	seq     int64
}

type reactionKey struct {
	messageID string
	userID    string
	emoji     string
}

// MemoryStore keeps everything in process. It mirrors the uniqueness rules of
// the MySQL schema so the services behave the same against both.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]models.User
	channels  map[string]*memoryChannel
	messages  map[string]*memoryMessage
	reactions map[reactionKey]models.Reaction
	files     map[string]models.File
	seq       int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]models.User),
		channels:  make(map[string]*memoryChannel),
		messages:  make(map[string]*memoryMessage),
		reactions: make(map[reactionKey]models.Reaction),
		files:     make(map[string]models.File),
	}
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return ErrDuplicate
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Username == username })
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Email == email })
}

func (s *MemoryStore) findUser(match func(models.User) bool) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if match(user) {
			return user, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (s *MemoryStore) ListUsers(_ context.Context, excludeID string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for id, user := range s.users {
		if id != excludeID {
			users = append(users, user)
		}
	}
	sortMembers(users)
	return users, nil
}

func (s *MemoryStore) UpdateUserStatus(_ context.Context, id string, status models.UserStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	user.Status = status
	user.UpdatedAt = at
	s.users[id] = user
	return nil
}

func (s *MemoryStore) CreateChannel(_ context.Context, channel models.Channel, memberIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.channels[channel.ID]; ok {
		return ErrDuplicate
	}
	if channel.CounterpartID != "" {
		for _, existing := range s.channels {
			if existing.channel.OwnerID == channel.OwnerID && existing.channel.CounterpartID == channel.CounterpartID {
				return ErrDuplicate
			}
		}
	}
	members := make(map[string]time.Time, len(memberIDs))
	for _, id := range memberIDs {
		members[id] = channel.CreatedAt
	}
	channel.Owner = nil
	channel.Members = nil
	s.channels[channel.ID] = &memoryChannel{channel: channel, members: members}
	return nil
}

// aggregate must be called with the lock held.
func (s *MemoryStore) aggregate(stored *memoryChannel) models.Channel {
	channel := stored.channel
	if owner, ok := s.users[channel.OwnerID]; ok {
		channel.Owner = &owner
	}
	channel.Members = make([]models.User, 0, len(stored.members))
	for id := range stored.members {
		if user, ok := s.users[id]; ok {
			channel.Members = append(channel.Members, user)
		}
	}
	sortMembers(channel.Members)
	return channel.WithMemberCount()
}

func (s *MemoryStore) GetChannel(_ context.Context, id string) (models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.channels[id]
	if !ok {
		return models.Channel{}, ErrNotFound
	}
	return s.aggregate(stored), nil
}

func (s *MemoryStore) FindDirectChannel(_ context.Context, ownerID, counterpartID string) (models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, stored := range s.channels {
		ch := stored.channel
		if ch.Kind == models.ChannelKindDirect && ch.OwnerID == ownerID && ch.CounterpartID == counterpartID {
			return s.aggregate(stored), nil
		}
	}
	return models.Channel{}, ErrNotFound
}

func (s *MemoryStore) ListChannelsForUser(_ context.Context, userID string) ([]models.Channel, error) {
	return s.listChannels(func(stored *memoryChannel) bool {
		if stored.channel.Kind != models.ChannelKindStandard {
			return false
		}
		_, member := stored.members[userID]
		return !stored.channel.IsPrivate || member
	}), nil
}

func (s *MemoryStore) ListDirectChannels(_ context.Context, ownerID string) ([]models.Channel, error) {
	return s.listChannels(func(stored *memoryChannel) bool {
		if stored.channel.Kind != models.ChannelKindDirect || stored.channel.OwnerID != ownerID {
			return false
		}
		_, member := stored.members[ownerID]
		return member
	}), nil
}

func (s *MemoryStore) listChannels(match func(*memoryChannel) bool) []models.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	channels := make([]models.Channel, 0)
	for _, stored := range s.channels {
		if match(stored) {
			channels = append(channels, s.aggregate(stored))
		}
	}
	sort.SliceStable(channels, func(i, j int) bool {
		if channels[i].CreatedAt.Equal(channels[j].CreatedAt) {
			return channels[i].ID < channels[j].ID
		}
		return channels[i].CreatedAt.Before(channels[j].CreatedAt)
	})
	return channels
}

func (s *MemoryStore) AddChannelMember(_ context.Context, channelID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.channels[channelID]
	if !ok {
		return ErrNotFound
	}
	if _, exists := stored.members[userID]; !exists {
		stored.members[userID] = at
	}
	stored.channel.UpdatedAt = at
	return nil
}

func (s *MemoryStore) RemoveChannelMember(_ context.Context, channelID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.channels[channelID]
	if !ok {
		return ErrNotFound
	}
	delete(stored.members, userID)
	stored.channel.UpdatedAt = at
	return nil
}

func (s *MemoryStore) CreateMessage(_ context.Context, message models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[message.ID]; ok {
		return ErrDuplicate
	}
	s.seq++
	message.User = nil
	s.messages[message.ID] = &memoryMessage{message: message, seq: s.seq}
	return nil
}

// withAuthor must be called with the lock held.
func (s *MemoryStore) withAuthor(message models.Message) models.Message {
	if user, ok := s.users[message.UserID]; ok {
		message.User = user.Summary()
	}
	return message
}

func (s *MemoryStore) GetMessage(_ context.Context, id string) (models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.messages[id]
	if !ok {
		return models.Message{}, ErrNotFound
	}
	return s.withAuthor(stored.message), nil
}

func (s *MemoryStore) ListChannelMessages(_ context.Context, channelID string) ([]models.Message, error) {
	return s.listMessages(func(m models.Message) bool {
		return m.ChannelID == channelID && m.ParentMessageID == ""
	}), nil
}

func (s *MemoryStore) ListThreadMessages(_ context.Context, parentMessageID string) ([]models.Message, error) {
	return s.listMessages(func(m models.Message) bool {
		return m.ParentMessageID == parentMessageID
	}), nil
}

func (s *MemoryStore) listMessages(match func(models.Message) bool) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*memoryMessage, 0)
	for _, stored := range s.messages {
		if match(stored.message) {
			matched = append(matched, stored)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	messages := make([]models.Message, 0, len(matched))
	for _, stored := range matched {
		messages = append(messages, s.withAuthor(stored.message))
	}
	return messages
}

func (s *MemoryStore) UpdateMessageContent(_ context.Context, id, content string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.messages[id]
	if !ok {
		return ErrNotFound
	}
	stored.message.Content = content
	stored.message.UpdatedAt = at
	return nil
}

func (s *MemoryStore) AddReaction(_ context.Context, reaction models.Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reactionKey{reaction.MessageID, reaction.UserID, reaction.Emoji}
	if _, exists := s.reactions[key]; !exists {
		s.reactions[key] = reaction
	}
	return nil
}

func (s *MemoryStore) RemoveReaction(_ context.Context, messageID, userID, emoji string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reactionKey{messageID, userID, emoji}
	if _, exists := s.reactions[key]; !exists {
		return false, nil
	}
	delete(s.reactions, key)
	return true, nil
}

func (s *MemoryStore) ListReactions(_ context.Context, messageID string) ([]models.Reaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reactions := make([]models.Reaction, 0)
	for key, reaction := range s.reactions {
		if key.messageID == messageID {
			reactions = append(reactions, reaction)
		}
	}
	sort.Slice(reactions, func(i, j int) bool {
		if reactions[i].CreatedAt.Equal(reactions[j].CreatedAt) {
			return reactions[i].Emoji < reactions[j].Emoji
		}
		return reactions[i].CreatedAt.Before(reactions[j].CreatedAt)
	})
	return reactions, nil
}

func (s *MemoryStore) CreateFile(_ context.Context, file models.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[file.ID]; ok {
		return ErrDuplicate
	}
	s.files[file.ID] = file
	return nil
}

func (s *MemoryStore) GetFile(_ context.Context, id string) (models.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, ok := s.files[id]
	if !ok {
		return models.File{}, ErrNotFound
	}
	return file, nil
}

func (s *MemoryStore) UpdateFileStatus(_ context.Context, id string, status models.FileStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, ok := s.files[id]
	if !ok {
		return ErrNotFound
	}
	file.Status = status
	s.files[id] = file
	return nil
}

func (s *MemoryStore) ListChannelFiles(_ context.Context, channelID string) ([]models.File, error) {
	return s.listFiles(func(f models.File) bool { return f.ChannelID == channelID }), nil
}

func (s *MemoryStore) ListUserFiles(_ context.Context, userID string) ([]models.File, error) {
	return s.listFiles(func(f models.File) bool { return f.UserID == userID }), nil
}

func (s *MemoryStore) listFiles(match func(models.File) bool) []models.File {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make([]models.File, 0)
	for _, file := range s.files {
		if match(file) {
			files = append(files, file)
		}
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].ID > files[j].ID
		}
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files
}
