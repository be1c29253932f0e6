package models

import "time"

type FileStatus string

const (
	FileStatusPending     FileStatus = "PENDING"
	FileStatusProcessed   FileStatus = "PROCESSED"
	FileStatusUnsupported FileStatus = "UNSUPPORTED"
)

// File is an uploaded attachment belonging to a channel.
type File struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	URL       string     `json:"url"`
	Size      int64      `json:"size"`
	ChannelID string     `json:"channelId"`
	UserID    string     `json:"userId"`
	Status    FileStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
}
