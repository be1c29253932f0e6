package models

import "time"

type UserStatus string

const (
	UserStatusOnline  UserStatus = "online"
	UserStatusOffline UserStatus = "offline"
	UserStatusAway    UserStatus = "away"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusOnline, UserStatusOffline, UserStatusAway:
		return true
	}
	return false
}

type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// UserSummary is the author block embedded in messages.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (u User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Username: u.Username}
}
