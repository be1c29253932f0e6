package models

import (
	"strings"
	"time"
)

// ChannelKind discriminates plain channels from direct-message channels.
type ChannelKind string

const (
	ChannelKindStandard ChannelKind = "STANDARD"
	ChannelKindDirect   ChannelKind = "DIRECT"
)

// DirectNamePrefix is prepended to the counterpart's username to name a DM channel.
const DirectNamePrefix = "dm-"

// Channel represents a channel aggregate with its members and owner joined in
type Channel struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	IsPrivate     bool        `json:"isPrivate"`
	Kind          ChannelKind `json:"kind"`
	OwnerID       string      `json:"ownerId"`
	CounterpartID string      `json:"counterpartId,omitempty"`
	Owner         *User       `json:"owner,omitempty"`
	Members       []User      `json:"members"`
	MemberCount   int         `json:"memberCount"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

func (c Channel) IsDirect() bool {
	return c.Kind == ChannelKindDirect
}

// HasMember reports whether userID is in the membership set.
func (c Channel) HasMember(userID string) bool {
	for _, member := range c.Members {
		if member.ID == userID {
			return true
		}
	}
	return false
}

// WithMemberCount returns a copy with MemberCount derived from Members.
func (c Channel) WithMemberCount() Channel {
	c.MemberCount = len(c.Members)
	if c.Members == nil {
		c.Members = []User{}
	}
	return c
}

// DirectChannelName derives the DM channel name for a counterpart username.
func DirectChannelName(username string) string {
	return DirectNamePrefix + username
}

// DirectCounterpartUsername extracts the username from a DM-style channel name.
func DirectCounterpartUsername(name string) (string, bool) {
	if !strings.HasPrefix(name, DirectNamePrefix) {
		return "", false
	}
	username := strings.TrimPrefix(name, DirectNamePrefix)
	return username, username != ""
}

// ChannelList is the response of a channel listing, split by kind.
type ChannelList struct {
	Channels       []Channel `json:"channels"`
	DirectMessages []Channel `json:"directMessages"`
}
