package realtime

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"

	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/metrics"
)

// RoomAuthorizer decides whether a user may subscribe to a room.
type RoomAuthorizer interface {
	AuthorizeRoom(ctx context.Context, userID, room string) error
}

// PresenceFunc is called when a user's first session connects or the last one
// goes away.
type PresenceFunc func(ctx context.Context, userID string)

type subscriptionAction int

const (
	actionReply subscriptionAction = iota
	actionJoin
	actionLeave
)

// subscription changes a client's rooms and optionally replies to it. Replies
// travel through Run so they never race the close of client.Send.
type subscription struct {
	client *Client
	room   string
	action subscriptionAction
	reply  []byte
}

type presenceChange struct {
	userID string
	online bool
}

// Hub maintains the set of active clients and their room subscriptions. All
// of its maps are owned by the Run goroutine.
type Hub struct {
	register     chan *Client
	unregister   chan *Client
	broadcast    chan Envelope
	subscribe    chan subscription
	presence     chan presenceChange
	done         chan struct{}
	clients      map[*Client]struct{}
	rooms        map[string]map[*Client]struct{}
	users        map[string]int
	authorizer   RoomAuthorizer
	onConnect    PresenceFunc
	onDisconnect PresenceFunc
	Log          *logger.Logger
}

func NewHub(authorizer RoomAuthorizer, log *logger.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Envelope, 256),
		subscribe:  make(chan subscription),
		presence:   make(chan presenceChange, 256),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		users:      make(map[string]int),
		authorizer: authorizer,
		Log:        log,
	}
}

// OnPresence installs the presence callbacks. Must be called before Run.
func (h *Hub) OnPresence(onConnect, onDisconnect PresenceFunc) {
	h.onConnect = onConnect
	h.onDisconnect = onDisconnect
}

// Run processes hub traffic until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	go h.runPresence(ctx)
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.users[client.UserID]++
			metrics.Connections.Inc()
			if h.users[client.UserID] == 1 {
				h.notifyPresence(client.UserID, true)
			}

		case client := <-h.unregister:
			h.remove(client)

		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; !ok {
				continue
			}
			switch sub.action {
			case actionJoin:
				if h.rooms[sub.room] == nil {
					h.rooms[sub.room] = make(map[*Client]struct{})
				}
				h.rooms[sub.room][sub.client] = struct{}{}
				sub.client.rooms[sub.room] = struct{}{}
			case actionLeave:
				h.leaveRoom(sub.client, sub.room)
			}
			if sub.reply != nil {
				select {
				case sub.client.Send <- sub.reply:
				default:
				}
			}

		case env := <-h.broadcast:
			h.fanout(env)
		}
	}
}

func (h *Hub) fanout(env Envelope) {
	if env.Event == EventMemberRemoved {
		h.evict(env)
		return
	}
	message, err := env.frame()
	if err != nil {
		h.Log.Error("Failed to encode frame", "event", env.Event, "error", err)
		return
	}

	targets := h.clients
	if env.Room != "" {
		targets = h.rooms[env.Room]
	}
	for client := range targets {
		select {
		case client.Send <- message:
		default:
			h.Log.Warn("Dropping slow client", "user_id", client.UserID)
			h.remove(client)
		}
	}
}

// evict drops the removed member's sessions from the room and tells each of
// them. Must run on the Run goroutine.
func (h *Hub) evict(env Envelope) {
	var removal MemberRemoval
	if err := json.Unmarshal(env.Data, &removal); err != nil || removal.UserID == "" || env.Room == "" {
		h.Log.Warn("Ignoring malformed member removal", "room", env.Room, "error", err)
		return
	}

	var evicted []*Client
	for client := range h.rooms[env.Room] {
		if client.UserID == removal.UserID {
			evicted = append(evicted, client)
		}
	}
	notice := roomFrame(EventRoomLeft, env.Room)
	for _, client := range evicted {
		h.leaveRoom(client, env.Room)
		select {
		case client.Send <- notice:
		default:
			h.remove(client)
		}
	}
	if len(evicted) > 0 {
		h.Log.Debug("Evicted sessions from room", "user_id", removal.UserID, "room", env.Room, "sessions", len(evicted))
	}
}

// remove must run on the Run goroutine.
func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for room := range client.rooms {
		h.leaveRoom(client, room)
	}
	close(client.Send)
	metrics.Connections.Dec()

	h.users[client.UserID]--
	if h.users[client.UserID] <= 0 {
		delete(h.users, client.UserID)
		h.notifyPresence(client.UserID, false)
	}
}

func (h *Hub) leaveRoom(client *Client, room string) {
	delete(client.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) notifyPresence(userID string, online bool) {
	select {
	case h.presence <- presenceChange{userID: userID, online: online}:
	default:
		h.Log.Warn("Presence queue full, dropping change", "user_id", userID, "online", online)
	}
}

// runPresence invokes the callbacks outside the Run loop so they may publish
// back into the hub.
func (h *Hub) runPresence(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-h.presence:
			callback := h.onDisconnect
			if change.online {
				callback = h.onConnect
			}
			if callback != nil {
				callback(ctx, change.userID)
			}
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	for client := range h.clients {
		close(client.Send)
		metrics.Connections.Dec()
	}
	h.clients = make(map[*Client]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	h.users = make(map[string]int)
}

// Publish implements Publisher by fanning out to the local sessions only.
func (h *Hub) Publish(ctx context.Context, event Event) error {
	env, err := newEnvelope(event)
	if err != nil {
		return err
	}
	metrics.EventsPublished.WithLabelValues(event.Name).Inc()
	return h.deliver(ctx, env)
}

func (h *Hub) deliver(ctx context.Context, env Envelope) error {
	select {
	case h.broadcast <- env:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Attach registers a websocket connection for userID and starts its pumps.
func (h *Hub) Attach(conn *websocket.Conn, userID string) error {
	client := newClient(h, conn, userID)
	if err := h.Register(client); err != nil {
		conn.Close()
		return err
	}
	go client.WritePump()
	go client.ReadPump()
	return nil
}

func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Join subscribes client to room after the authorizer accepts it. reply, when
// non-nil, is queued to the client once the join is applied.
func (h *Hub) Join(ctx context.Context, client *Client, room string, reply []byte) error {
	if h.authorizer != nil {
		if err := h.authorizer.AuthorizeRoom(ctx, client.UserID, room); err != nil {
			return err
		}
	}
	return h.sendSubscription(subscription{client: client, room: room, action: actionJoin, reply: reply})
}

func (h *Hub) Leave(client *Client, room string, reply []byte) error {
	return h.sendSubscription(subscription{client: client, room: room, action: actionLeave, reply: reply})
}

// Reply queues a frame for a single client.
func (h *Hub) Reply(client *Client, reply []byte) error {
	return h.sendSubscription(subscription{client: client, action: actionReply, reply: reply})
}

func (h *Hub) sendSubscription(sub subscription) error {
	select {
	case h.subscribe <- sub:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}
