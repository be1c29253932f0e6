package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nikhil/chatgenius/internal/logger"
)

type roomRule map[string]bool

func (r roomRule) AuthorizeRoom(_ context.Context, userID, room string) error {
	if r[userID+"/"+room] {
		return nil
	}
	return errors.New("not allowed")
}

func startHub(t *testing.T, authorizer RoomAuthorizer) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(authorizer, logger.NewNop("hub-test"))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func mustRegister(t *testing.T, hub *Hub, userID string) *Client {
	t.Helper()
	client := NewClient(hub, userID)
	if err := hub.Register(client); err != nil {
		t.Fatalf("register: %v", err)
	}
	return client
}

func receive(t *testing.T, client *Client) Frame {
	t.Helper()
	select {
	case message, ok := <-client.Send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		return frame
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return Frame{}
}

func expectNothing(t *testing.T, client *Client) {
	t.Helper()
	select {
	case message := <-client.Send:
		t.Fatalf("unexpected frame %s", message)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBroadcastWithoutRoomReachesEveryone(t *testing.T) {
	hub, _ := startHub(t, nil)
	alice := mustRegister(t, hub, "alice")
	bob := mustRegister(t, hub, "bob")

	if err := hub.Publish(context.Background(), Event{Name: EventChannelCreated, Payload: map[string]string{"id": "c1"}}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	for _, client := range []*Client{alice, bob} {
		frame := receive(t, client)
		if frame.Event != EventChannelCreated {
			t.Fatalf("event = %q", frame.Event)
		}
		if string(frame.Data) != `{"id":"c1"}` {
			t.Fatalf("data = %s", frame.Data)
		}
	}
}

func TestHubRoomScopedDelivery(t *testing.T) {
	hub, _ := startHub(t, roomRule{"alice/c1": true})
	alice := mustRegister(t, hub, "alice")
	bob := mustRegister(t, hub, "bob")

	if err := hub.Join(context.Background(), alice, "c1", roomFrame(EventRoomJoined, "c1")); err != nil {
		t.Fatalf("join: %v", err)
	}
	if frame := receive(t, alice); frame.Event != EventRoomJoined {
		t.Fatalf("expected join ack, got %q", frame.Event)
	}
	if err := hub.Join(context.Background(), bob, "c1", nil); err == nil {
		t.Fatal("expected bob to be rejected")
	}

	if err := hub.Publish(context.Background(), Event{Name: EventMessageCreated, Room: "c1", Payload: "hi"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if frame := receive(t, alice); frame.Event != EventMessageCreated {
		t.Fatalf("event = %q", frame.Event)
	}
	expectNothing(t, bob)

	if err := hub.Leave(alice, "c1", nil); err != nil {
		t.Fatalf("leave: %v", err)
	}
	hub.Publish(context.Background(), Event{Name: EventMessageCreated, Room: "c1", Payload: "again"})
	expectNothing(t, alice)
}

func TestHubPresenceCallbacks(t *testing.T) {
	var mu sync.Mutex
	var changes []string
	record := func(prefix string) PresenceFunc {
		return func(_ context.Context, userID string) {
			mu.Lock()
			changes = append(changes, prefix+userID)
			mu.Unlock()
		}
	}

	hub := NewHub(nil, logger.NewNop("hub-test"))
	hub.OnPresence(record("on:"), record("off:"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	first := mustRegister(t, hub, "alice")
	second := mustRegister(t, hub, "alice")
	hub.Unregister(first)
	hub.Unregister(second)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(changes)
		mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 2 || changes[0] != "on:alice" || changes[1] != "off:alice" {
		t.Fatalf("presence changes = %v", changes)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	dropped := make(chan string, 1)
	hub := NewHub(nil, logger.NewNop("hub-test"))
	hub.OnPresence(nil, func(_ context.Context, userID string) { dropped <- userID })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	slow := mustRegister(t, hub, "slow")
	for i := 0; i < sendBuffer+1; i++ {
		if err := hub.Publish(context.Background(), Event{Name: EventUserStatus, Payload: i}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	select {
	case userID := <-dropped:
		if userID != "slow" {
			t.Fatalf("dropped %q", userID)
		}
	case <-time.After(time.Second):
		t.Fatal("slow client was not dropped")
	}

	received := 0
	for range slow.Send {
		received++
	}
	if received != sendBuffer {
		t.Fatalf("received %d frames before drop, want %d", received, sendBuffer)
	}
}

func TestHubPublishAfterShutdown(t *testing.T) {
	hub, cancel := startHub(t, nil)
	client := mustRegister(t, hub, "alice")
	cancel()

	select {
	case _, ok := <-client.Send:
		if ok {
			t.Fatal("expected closed send channel")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed on shutdown")
	}
	if err := hub.Register(NewClient(hub, "bob")); !errors.Is(err, ErrHubClosed) {
		t.Fatalf("expected ErrHubClosed, got %v", err)
	}
}

func TestClientHandleRejectsUnknownType(t *testing.T) {
	hub, _ := startHub(t, nil)
	client := mustRegister(t, hub, "alice")

	if err := client.Handle(ClientMessage{Type: "bogus"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if frame := receive(t, client); frame.Event != EventError {
		t.Fatalf("event = %q", frame.Event)
	}
}

func TestPublishRequiresEventName(t *testing.T) {
	hub, _ := startHub(t, nil)
	if err := hub.Publish(context.Background(), Event{}); err == nil {
		t.Fatal("expected error for unnamed event")
	}
}

func TestHubMemberRemovalEvictsOnlyThatUser(t *testing.T) {
	hub, _ := startHub(t, roomRule{"alice/c1": true, "bob/c1": true})
	ctx := context.Background()
	alice := mustRegister(t, hub, "alice")
	bobPhone := mustRegister(t, hub, "bob")
	bobLaptop := mustRegister(t, hub, "bob")

	for _, client := range []*Client{alice, bobPhone, bobLaptop} {
		if err := hub.Join(ctx, client, "c1", nil); err != nil {
			t.Fatalf("join: %v", err)
		}
	}

	if err := hub.Publish(ctx, Event{Name: EventMemberRemoved, Room: "c1", Payload: MemberRemoval{UserID: "bob"}}); err != nil {
		t.Fatalf("publish removal: %v", err)
	}
	for _, client := range []*Client{bobPhone, bobLaptop} {
		if frame := receive(t, client); frame.Event != EventRoomLeft {
			t.Fatalf("expected room:left, got %q", frame.Event)
		}
	}
	expectNothing(t, alice)

	hub.Publish(ctx, Event{Name: EventMessageCreated, Room: "c1", Payload: "after"})
	if frame := receive(t, alice); frame.Event != EventMessageCreated {
		t.Fatalf("alice event = %q", frame.Event)
	}
	expectNothing(t, bobPhone)
	expectNothing(t, bobLaptop)
}
