// Package realtime fans committed mutations out to websocket sessions.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nikhil/chatgenius/internal/logger"
)

const (
	EventChannelCreated       = "channel:created"
	EventChannelUpdated       = "channel:updated"
	EventThreadMessageCreated = "thread:message_created"
	EventThreadMessageUpdated = "thread:message_updated"
	EventMessageCreated       = "message:created"
	EventMessageUpdated       = "message:updated"
	EventReactionAdded        = "reaction:added"
	EventReactionRemoved      = "reaction:removed"
	EventFileUploaded         = "file:uploaded"
	EventUserStatus           = "user:status"

	// EventMemberRemoved is consumed by the hub and never reaches clients:
	// it unsubscribes the removed user's sessions from the room.
	EventMemberRemoved = "member:removed"
)

var ErrHubClosed = errors.New("realtime: hub closed")

// Event is a named notification. An empty Room addresses every session.
type Event struct {
	Name    string
	Room    string
	Payload any
}

// MemberRemoval is the payload of EventMemberRemoved.
type MemberRemoval struct {
	UserID string `json:"userId"`
}

// Publisher delivers events best-effort. There is no ack, retry or ordering
// guarantee across publishers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Envelope is an event in transit between instances.
type Envelope struct {
	Room  string          `json:"room,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Frame is what a websocket client receives.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newEnvelope(event Event) (Envelope, error) {
	if event.Name == "" {
		return Envelope{}, errors.New("realtime: event name is required")
	}
	data, err := json.Marshal(event.Payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event.Name, err)
	}
	return Envelope{Room: event.Room, Event: event.Name, Data: data}, nil
}

func (e Envelope) frame() ([]byte, error) {
	return json.Marshal(Frame{Event: e.Event, Data: e.Data})
}

// Notify publishes after a committed mutation. A failure is logged and never
// undoes the mutation.
func Notify(ctx context.Context, publisher Publisher, log *logger.Logger, event Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		log.Warn("Failed to publish event", "event", event.Name, "room", event.Room, "error", err)
	}
}
