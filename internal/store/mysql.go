package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/nikhil/chatgenius/internal/models"
)

const mysqlDuplicateEntry = 1062

type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `u.id, u.username, u.email, u.password_hash, u.status, u.created_at, u.updated_at`

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	var status string
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &status, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return models.User{}, err
	}
	user.Status = models.UserStatus(status)
	return user, nil
}

// Users

func (s *MySQLStore) CreateUser(ctx context.Context, user models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.Username, user.Email, user.PasswordHash, string(user.Status), user.CreatedAt, user.UpdatedAt)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *MySQLStore) getUserBy(ctx context.Context, column, value string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.` + column + ` = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, value))
	if err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}

func (s *MySQLStore) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return s.getUserBy(ctx, "id", id)
}

func (s *MySQLStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.getUserBy(ctx, "username", username)
}

func (s *MySQLStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getUserBy(ctx, "email", email)
}

func (s *MySQLStore) ListUsers(ctx context.Context, excludeID string) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id <> ? ORDER BY u.username`, excludeID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *MySQLStore) UpdateUserStatus(ctx context.Context, id string, status models.UserStatus, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET status = ?, updated_at = ? WHERE id = ?`, string(status), at, id)
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Channels

const channelColumns = `c.id, c.name, c.is_private, c.kind, c.owner_id, COALESCE(c.counterpart_id, ''), c.created_at, c.updated_at, ` + userColumns

func scanChannel(row rowScanner) (models.Channel, error) {
	var channel models.Channel
	var kind string
	var owner models.User
	var ownerStatus string
	err := row.Scan(
		&channel.ID, &channel.Name, &channel.IsPrivate, &kind, &channel.OwnerID, &channel.CounterpartID,
		&channel.CreatedAt, &channel.UpdatedAt,
		&owner.ID, &owner.Username, &owner.Email, &owner.PasswordHash, &ownerStatus, &owner.CreatedAt, &owner.UpdatedAt,
	)
	if err != nil {
		return models.Channel{}, err
	}
	channel.Kind = models.ChannelKind(kind)
	owner.Status = models.UserStatus(ownerStatus)
	channel.Owner = &owner
	return channel, nil
}

// CreateChannel inserts the channel row and its initial members in one
// transaction. A second DIRECT channel for the same owner/counterpart pair
// yields ErrDuplicate.
func (s *MySQLStore) CreateChannel(ctx context.Context, channel models.Channel, memberIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin channel tx: %w", err)
	}
	defer tx.Rollback()

	var counterpart any
	if channel.CounterpartID != "" {
		counterpart = channel.CounterpartID
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO channels (id, name, is_private, kind, owner_id, counterpart_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, channel.ID, channel.Name, channel.IsPrivate, string(channel.Kind), channel.OwnerID, counterpart, channel.CreatedAt, channel.UpdatedAt)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}

	for _, memberID := range memberIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT IGNORE INTO channel_members (channel_id, user_id, joined_at)
			VALUES (?, ?, ?)
		`, channel.ID, memberID, channel.CreatedAt); err != nil {
			return fmt.Errorf("insert channel member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit channel tx: %w", err)
	}
	return nil
}

func (s *MySQLStore) GetChannel(ctx context.Context, id string) (models.Channel, error) {
	channel, err := scanChannel(s.db.QueryRowContext(ctx, `
		SELECT `+channelColumns+`
		FROM channels c
		JOIN users u ON u.id = c.owner_id
		WHERE c.id = ?
	`, id))
	if err != nil {
		return models.Channel{}, notFound(err)
	}
	channels := []models.Channel{channel}
	if err := s.attachMembers(ctx, channels); err != nil {
		return models.Channel{}, err
	}
	return channels[0], nil
}

func (s *MySQLStore) FindDirectChannel(ctx context.Context, ownerID, counterpartID string) (models.Channel, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM channels WHERE kind = ? AND owner_id = ? AND counterpart_id = ?
	`, string(models.ChannelKindDirect), ownerID, counterpartID).Scan(&id)
	if err != nil {
		return models.Channel{}, notFound(err)
	}
	return s.GetChannel(ctx, id)
}

// ListChannelsForUser returns STANDARD channels that are public or that
// userID belongs to.
func (s *MySQLStore) ListChannelsForUser(ctx context.Context, userID string) ([]models.Channel, error) {
	return s.listChannels(ctx, `
		SELECT `+channelColumns+`
		FROM channels c
		JOIN users u ON u.id = c.owner_id
		WHERE c.kind = ? AND (
			c.is_private = FALSE OR
			EXISTS (SELECT 1 FROM channel_members cm WHERE cm.channel_id = c.id AND cm.user_id = ?)
		)
		ORDER BY c.created_at, c.id
	`, string(models.ChannelKindStandard), userID)
}

// ListDirectChannels returns DIRECT channels owned by ownerID that still
// count the owner as a member.
func (s *MySQLStore) ListDirectChannels(ctx context.Context, ownerID string) ([]models.Channel, error) {
	return s.listChannels(ctx, `
		SELECT `+channelColumns+`
		FROM channels c
		JOIN users u ON u.id = c.owner_id
		WHERE c.kind = ? AND c.owner_id = ? AND
			EXISTS (SELECT 1 FROM channel_members cm WHERE cm.channel_id = c.id AND cm.user_id = c.owner_id)
		ORDER BY c.created_at, c.id
	`, string(models.ChannelKindDirect), ownerID)
}

func (s *MySQLStore) listChannels(ctx context.Context, query string, args ...any) ([]models.Channel, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	channels := make([]models.Channel, 0)
	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}
	if err := s.attachMembers(ctx, channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// attachMembers loads the membership of every channel with a single query.
func (s *MySQLStore) attachMembers(ctx context.Context, channels []models.Channel) error {
	if len(channels) == 0 {
		return nil
	}
	index := make(map[string]int, len(channels))
	placeholders := make([]string, 0, len(channels))
	args := make([]any, 0, len(channels))
	for i := range channels {
		index[channels[i].ID] = i
		channels[i].Members = []models.User{}
		placeholders = append(placeholders, "?")
		args = append(args, channels[i].ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cm.channel_id, `+userColumns+`
		FROM channel_members cm
		JOIN users u ON u.id = cm.user_id
		WHERE cm.channel_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY u.username
	`, args...)
	if err != nil {
		return fmt.Errorf("list channel members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var channelID, status string
		var user models.User
		if err := rows.Scan(&channelID, &user.ID, &user.Username, &user.Email, &user.PasswordHash, &status, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return fmt.Errorf("scan channel member: %w", err)
		}
		user.Status = models.UserStatus(status)
		if i, ok := index[channelID]; ok {
			channels[i].Members = append(channels[i].Members, user)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate channel members: %w", err)
	}
	for i := range channels {
		channels[i].MemberCount = len(channels[i].Members)
	}
	return nil
}

// AddChannelMember is idempotent: adding an existing member is a no-op.
func (s *MySQLStore) AddChannelMember(ctx context.Context, channelID, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO channel_members (channel_id, user_id, joined_at) VALUES (?, ?, ?)
	`, channelID, userID, at)
	if err != nil {
		return fmt.Errorf("add channel member: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE channels SET updated_at = ? WHERE id = ?`, at, channelID)
	if err != nil {
		return fmt.Errorf("touch channel: %w", err)
	}
	return nil
}

// RemoveChannelMember is idempotent: removing a non-member is a no-op.
func (s *MySQLStore) RemoveChannelMember(ctx context.Context, channelID, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM channel_members WHERE channel_id = ? AND user_id = ?`, channelID, userID)
	if err != nil {
		return fmt.Errorf("remove channel member: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE channels SET updated_at = ? WHERE id = ?`, at, channelID)
	if err != nil {
		return fmt.Errorf("touch channel: %w", err)
	}
	return nil
}

// Messages

const messageColumns = `m.id, m.content, m.channel_id, m.user_id, COALESCE(m.parent_message_id, ''), m.created_at, m.updated_at, u.username`

func scanMessage(row rowScanner) (models.Message, error) {
	var message models.Message
	var username string
	err := row.Scan(&message.ID, &message.Content, &message.ChannelID, &message.UserID, &message.ParentMessageID,
		&message.CreatedAt, &message.UpdatedAt, &username)
	if err != nil {
		return models.Message{}, err
	}
	message.User = &models.UserSummary{ID: message.UserID, Username: username}
	return message, nil
}

func (s *MySQLStore) CreateMessage(ctx context.Context, message models.Message) error {
	var parent any
	if message.ParentMessageID != "" {
		parent = message.ParentMessageID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, content, channel_id, user_id, parent_message_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, message.ID, message.Content, message.ChannelID, message.UserID, parent, message.CreatedAt, message.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *MySQLStore) GetMessage(ctx context.Context, id string) (models.Message, error) {
	message, err := scanMessage(s.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.id = ?
	`, id))
	if err != nil {
		return models.Message{}, notFound(err)
	}
	return message, nil
}

func (s *MySQLStore) ListChannelMessages(ctx context.Context, channelID string) ([]models.Message, error) {
	return s.listMessages(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.channel_id = ? AND m.parent_message_id IS NULL
		ORDER BY m.seq
	`, channelID)
}

func (s *MySQLStore) ListThreadMessages(ctx context.Context, parentMessageID string) ([]models.Message, error) {
	return s.listMessages(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.parent_message_id = ?
		ORDER BY m.seq
	`, parentMessageID)
}

func (s *MySQLStore) listMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

func (s *MySQLStore) UpdateMessageContent(ctx context.Context, id, content string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE messages SET content = ?, updated_at = ? WHERE id = ?`, content, at, id)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return requireAffected(result)
}

// Reactions

// AddReaction is idempotent on the (message, user, emoji) triple.
func (s *MySQLStore) AddReaction(ctx context.Context, reaction models.Reaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO reactions (message_id, user_id, emoji, created_at) VALUES (?, ?, ?, ?)
	`, reaction.MessageID, reaction.UserID, reaction.Emoji, reaction.CreatedAt)
	if err != nil {
		return fmt.Errorf("add reaction: %w", err)
	}
	return nil
}

func (s *MySQLStore) RemoveReaction(ctx context.Context, messageID, userID, emoji string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reactions WHERE message_id = ? AND user_id = ? AND emoji = ?`, messageID, userID, emoji)
	if err != nil {
		return false, fmt.Errorf("remove reaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *MySQLStore) ListReactions(ctx context.Context, messageID string) ([]models.Reaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, user_id, emoji, created_at FROM reactions WHERE message_id = ? ORDER BY created_at, emoji
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	reactions := make([]models.Reaction, 0)
	for rows.Next() {
		var reaction models.Reaction
		if err := rows.Scan(&reaction.MessageID, &reaction.UserID, &reaction.Emoji, &reaction.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		reactions = append(reactions, reaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reactions: %w", err)
	}
	return reactions, nil
}

// Files

const fileColumns = `id, name, type, url, size, channel_id, user_id, status, created_at`

func scanFile(row rowScanner) (models.File, error) {
	var file models.File
	var status string
	if err := row.Scan(&file.ID, &file.Name, &file.Type, &file.URL, &file.Size, &file.ChannelID, &file.UserID, &status, &file.CreatedAt); err != nil {
		return models.File{}, err
	}
	file.Status = models.FileStatus(status)
	return file, nil
}

func (s *MySQLStore) CreateFile(ctx context.Context, file models.File) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (`+fileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, file.ID, file.Name, file.Type, file.URL, file.Size, file.ChannelID, file.UserID, string(file.Status), file.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (s *MySQLStore) GetFile(ctx context.Context, id string) (models.File, error) {
	file, err := scanFile(s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id))
	if err != nil {
		return models.File{}, notFound(err)
	}
	return file, nil
}

func (s *MySQLStore) UpdateFileStatus(ctx context.Context, id string, status models.FileStatus) error {
	result, err := s.db.ExecContext(ctx, `UPDATE files SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update file status: %w", err)
	}
	return requireAffected(result)
}

func (s *MySQLStore) ListChannelFiles(ctx context.Context, channelID string) ([]models.File, error) {
	return s.listFiles(ctx, `SELECT `+fileColumns+` FROM files WHERE channel_id = ? ORDER BY created_at DESC`, channelID)
}

func (s *MySQLStore) ListUserFiles(ctx context.Context, userID string) ([]models.File, error) {
	return s.listFiles(ctx, `SELECT `+fileColumns+` FROM files WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

func (s *MySQLStore) listFiles(ctx context.Context, query string, args ...any) ([]models.File, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := make([]models.File, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}
