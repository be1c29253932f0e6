package models

import "time"

// Message is a channel message. A non-empty ParentMessageID makes it a thread reply.
type Message struct {
	ID              string       `json:"id"`
	Content         string       `json:"content"`
	ChannelID       string       `json:"channelId"`
	UserID          string       `json:"userId"`
	ParentMessageID string       `json:"parentMessageId,omitempty"`
	User            *UserSummary `json:"user,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

func (m Message) IsThreadReply() bool {
	return m.ParentMessageID != ""
}

// Reaction is unique per (message, user, emoji).
type Reaction struct {
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}
