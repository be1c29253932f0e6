package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096

	sendBuffer = 256

	authorizeTimeout = 5 * time.Second
)

const (
	ClientRoomJoin  = "room:join"
	ClientRoomLeave = "room:leave"

	EventRoomJoined = "room:joined"
	EventRoomLeft   = "room:left"
	EventError      = "error"
)

// Client is one websocket session.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string

	// owned by the hub's Run goroutine
	rooms map[string]struct{}
}

// ClientMessage is what a session may send upstream.
type ClientMessage struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

func newClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		UserID: userID,
		rooms:  make(map[string]struct{}),
	}
}

// NewClient builds a client that is not bound to a connection.
func NewClient(hub *Hub, userID string) *Client {
	return newClient(hub, nil, userID)
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.Log.Warn("Websocket closed unexpectedly", "user_id", c.UserID, "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.replyError("malformed message")
			continue
		}
		if err := c.Handle(msg); errors.Is(err, ErrHubClosed) {
			return
		}
	}
}

// Handle applies one upstream message.
func (c *Client) Handle(msg ClientMessage) error {
	switch msg.Type {
	case ClientRoomJoin:
		if msg.Room == "" {
			return c.replyError("room is required")
		}
		ctx, cancel := context.WithTimeout(context.Background(), authorizeTimeout)
		defer cancel()
		err := c.Hub.Join(ctx, c, msg.Room, roomFrame(EventRoomJoined, msg.Room))
		if err != nil && !errors.Is(err, ErrHubClosed) {
			c.Hub.Log.Debug("Room join rejected", "user_id", c.UserID, "room", msg.Room, "error", err)
			return c.replyError("cannot join room")
		}
		return err
	case ClientRoomLeave:
		return c.Hub.Leave(c, msg.Room, roomFrame(EventRoomLeft, msg.Room))
	default:
		return c.replyError("unknown message type")
	}
}

func (c *Client) replyError(message string) error {
	data, _ := json.Marshal(map[string]string{"message": message})
	frame, _ := json.Marshal(Frame{Event: EventError, Data: data})
	return c.Hub.Reply(c, frame)
}

func roomFrame(event, room string) []byte {
	data, _ := json.Marshal(map[string]string{"room": room})
	frame, _ := json.Marshal(Frame{Event: event, Data: data})
	return frame
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
