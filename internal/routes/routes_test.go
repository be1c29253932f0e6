package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nikhil/chatgenius/internal/handlers"
	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/models"
	"github.com/nikhil/chatgenius/internal/realtime"
	services "github.com/nikhil/chatgenius/internal/service/auth"
	"github.com/nikhil/chatgenius/internal/service/channels"
	"github.com/nikhil/chatgenius/internal/service/files"
	"github.com/nikhil/chatgenius/internal/service/messages"
	"github.com/nikhil/chatgenius/internal/service/threads"
	"github.com/nikhil/chatgenius/internal/service/users"
	"github.com/nikhil/chatgenius/internal/store"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logger.NewNop("routes")
	mem := store.NewMemoryStore()

	channelService := channels.NewChannelService(mem, nil, log)
	hub := realtime.NewHub(channelService, log)
	channelService.Publisher = hub

	profiles := users.NewProfileService(mem, hub, log)
	hub.OnPresence(profiles.Connected, profiles.Disconnected)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	authService := services.NewAuthService(mem, "routes-secret", log)
	set := &handlers.Set{
		Auth:      handlers.NewAuthHandler(authService, log),
		Users:     handlers.NewUserHandler(profiles, log),
		Channels:  handlers.NewChannelHandler(channelService, log),
		Messages:  handlers.NewMessageHandler(messages.NewMessageService(mem, hub, log), log),
		Threads:   handlers.NewThreadHandler(threads.NewThreadService(mem, hub, log), log),
		Files:     handlers.NewFileHandler(files.NewFileService(mem, nil, hub, log), 1<<20, log),
		WebSocket: handlers.NewWebSocketHandler(hub, "*", log),
		Health:    handlers.NewHealthHandler(mem, log),
	}
	server := httptest.NewServer(Handler(Deps{Handlers: set, Tokens: authService, Log: log}, "*"))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return server
}

func call(t *testing.T, server *httptest.Server, method, path, token string, body interface{}, dst interface{}) int {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			t.Fatalf("marshal: %v", err)
		}
	}
	req, err := http.NewRequest(method, server.URL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func signup(t *testing.T, server *httptest.Server, name string) session {
	t.Helper()
	var s session
	status := call(t, server, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": name, "email": name + "@example.com", "password": "secret-" + name,
	}, &s)
	if status != http.StatusCreated {
		t.Fatalf("signup %s: status %d", name, status)
	}
	return s
}

func TestHealthAndAuthGate(t *testing.T) {
	server := newServer(t)

	var health map[string]string
	if status := call(t, server, http.MethodGet, "/api/health", "", nil, &health); status != http.StatusOK || health["status"] != "ok" {
		t.Fatalf("health: %d %v", status, health)
	}
	if status := call(t, server, http.MethodGet, "/api/channels", "", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: %d", status)
	}
	if status := call(t, server, http.MethodGet, "/api/channels", "garbage", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", status)
	}

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/api/channels", nil)
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight status: %d", resp.StatusCode)
	}
}

func TestChatFlowOverHTTP(t *testing.T) {
	server := newServer(t)
	alice := signup(t, server, "alice")
	bob := signup(t, server, "bob")

	var general models.Channel
	if status := call(t, server, http.MethodPost, "/api/channels", alice.Token, map[string]interface{}{"name": "general"}, &general); status != http.StatusCreated {
		t.Fatalf("create channel: %d", status)
	}
	if status := call(t, server, http.MethodPost, "/api/channels/"+general.ID+"/join", bob.Token, nil, &general); status != http.StatusOK || general.MemberCount != 2 {
		t.Fatalf("join: %d members=%d", status, general.MemberCount)
	}
	if status := call(t, server, http.MethodPost, "/api/channels/"+general.ID+"/join", bob.Token, nil, nil); status != http.StatusBadRequest {
		t.Fatalf("second join: %d", status)
	}

	var root models.Message
	if status := call(t, server, http.MethodPost, "/api/channels/"+general.ID+"/messages", bob.Token, map[string]string{"content": "hello"}, &root); status != http.StatusCreated {
		t.Fatalf("post message: %d", status)
	}

	for _, content := range []string{"first", "second"} {
		if status := call(t, server, http.MethodPost, "/api/threads", alice.Token, map[string]string{"content": content, "parentMessageId": root.ID}, nil); status != http.StatusCreated {
			t.Fatalf("reply %s: %d", content, status)
		}
	}
	var replies []models.Message
	if status := call(t, server, http.MethodGet, "/api/threads/"+root.ID, alice.Token, nil, &replies); status != http.StatusOK {
		t.Fatalf("thread: %d", status)
	}
	if len(replies) != 2 || replies[0].Content != "first" || replies[1].Content != "second" {
		t.Fatalf("thread order: %+v", replies)
	}
	if status := call(t, server, http.MethodPatch, "/api/threads/"+replies[0].ID, bob.Token, map[string]string{"content": "x"}, nil); status != http.StatusForbidden {
		t.Fatalf("non-author thread edit: %d", status)
	}

	var top []models.Message
	call(t, server, http.MethodGet, "/api/channels/"+general.ID+"/messages", alice.Token, nil, &top)
	if len(top) != 1 || top[0].ID != root.ID {
		t.Fatalf("replies leaked into channel listing: %+v", top)
	}

	var list models.ChannelList
	call(t, server, http.MethodGet, "/api/channels", bob.Token, nil, &list)
	if len(list.Channels) != 1 || list.DirectMessages == nil {
		t.Fatalf("bob's channels: %+v", list)
	}

	var others []models.User
	call(t, server, http.MethodGet, "/api/users", alice.Token, nil, &others)
	if len(others) != 1 || others[0].Username != "bob" {
		t.Fatalf("users: %+v", others)
	}

	if status := call(t, server, http.MethodGet, "/api/channels/"+general.ID+"/files", alice.Token, nil, nil); status != http.StatusOK {
		t.Fatalf("list files: %d", status)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn, want string) realtime.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var frame realtime.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if frame.Event == want {
			return frame
		}
	}
}

func TestWebSocketReceivesEvents(t *testing.T) {
	server := newServer(t)
	alice := signup(t, server, "alice")

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + alice.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// connecting marks the user online, which also proves registration
	status := readFrame(t, conn, realtime.EventUserStatus)
	var change users.StatusChange
	json.Unmarshal(status.Data, &change)
	if change.UserID != alice.User.ID || change.Status != models.UserStatusOnline {
		t.Fatalf("presence frame: %+v", change)
	}

	var general models.Channel
	call(t, server, http.MethodPost, "/api/channels", alice.Token, map[string]interface{}{"name": "general"}, &general)
	readFrame(t, conn, realtime.EventChannelCreated)

	if err := conn.WriteJSON(realtime.ClientMessage{Type: realtime.ClientRoomJoin, Room: general.ID}); err != nil {
		t.Fatalf("join room: %v", err)
	}
	readFrame(t, conn, realtime.EventRoomJoined)

	call(t, server, http.MethodPost, "/api/channels/"+general.ID+"/messages", alice.Token, map[string]string{"content": "ping"}, nil)
	frame := readFrame(t, conn, realtime.EventMessageCreated)
	var message models.Message
	json.Unmarshal(frame.Data, &message)
	if message.Content != "ping" || message.ChannelID != general.ID {
		t.Fatalf("message frame: %+v", message)
	}

	if _, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil); err == nil {
		t.Fatal("dial without token should fail")
	}
}
