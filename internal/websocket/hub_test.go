package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chatting-demo-backend/internal/store"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func setupStreamServer(t *testing.T) (*httptest.Server, *Hub, store.Store) {
	t.Helper()
	st := store.New(store.NewMemoryBackend(), store.NewLocalNotifier(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)
	handler := NewHandler(hub, zerolog.Nop())

	watch := func(ctx context.Context, emit func(Event)) (*store.Subscription, error) {
		return st.Subscribe(ctx, "room/value", func(snap store.Snapshot) {
			emit(Event{Type: "value", Payload: snap.Value})
		})
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.Stream(w, r, "room", r.URL.Query().Get("user"), watch)
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
		<-hub.Done()
	})
	return server, hub, st
}

func dial(t *testing.T, server *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func waitForRooms(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(hub.RoomStats()) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d rooms, got %v", want, hub.RoomStats())
}

func TestStreamDeliversInitialAndUpdates(t *testing.T) {
	server, _, st := setupStreamServer(t)
	if err := st.Set(context.Background(), "room/value", "first"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	conn := dial(t, server, "alice")
	defer conn.Close()

	msg := readMessage(t, conn)
	if msg.Type != "value" || msg.Payload != "first" || msg.RoomID != "room" {
		t.Fatalf("unexpected initial message %+v", msg)
	}

	if err := st.Set(context.Background(), "room/value", "second"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if msg := readMessage(t, conn); msg.Payload != "second" {
		t.Fatalf("unexpected update %+v", msg)
	}
}

func TestLateJoinerGetsLastValue(t *testing.T) {
	server, hub, st := setupStreamServer(t)
	if err := st.Set(context.Background(), "room/value", "v1"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	first := dial(t, server, "alice")
	defer first.Close()
	readMessage(t, first)

	second := dial(t, server, "bob")
	defer second.Close()
	if msg := readMessage(t, second); msg.Payload != "v1" {
		t.Fatalf("late joiner expected cached value, got %+v", msg)
	}

	stats := hub.RoomStats()
	if len(stats) != 1 || stats[0].Clients != 2 {
		t.Fatalf("expected one shared room with two clients, got %v", stats)
	}
}

func TestRoomClosesWhenLastClientLeaves(t *testing.T) {
	server, hub, st := setupStreamServer(t)
	if err := st.Set(context.Background(), "room/value", "v1"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	conn := dial(t, server, "alice")
	readMessage(t, conn)
	waitForRooms(t, hub, 1)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitForRooms(t, hub, 0)
}

func TestBroadcastFromClosedRoomIsDiscarded(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(zerolog.Nop())

	first := &WSClient{ID: "a", RoomID: "room", Message: make(chan *WSMessage, 4)}
	hub.register(ctx, first)
	stale := hub.Rooms["room"]
	hub.unregister(first)
	if _, ok := hub.Rooms["room"]; ok {
		t.Fatal("expected room to close with its last client")
	}

	second := &WSClient{ID: "b", RoomID: "room", Message: make(chan *WSMessage, 4)}
	hub.register(ctx, second)
	current := hub.Rooms["room"]
	if current == stale {
		t.Fatal("expected a new room instance")
	}

	hub.broadcast(&WSMessage{room: stale, RoomID: "room", Type: "value", Payload: "old"})
	select {
	case msg := <-second.Message:
		t.Fatalf("stale message delivered: %+v", msg)
	default:
	}
	if current.last != nil {
		t.Fatalf("stale message cached: %+v", current.last)
	}

	hub.broadcast(&WSMessage{room: current, RoomID: "room", Type: "value", Payload: "new"})
	select {
	case msg := <-second.Message:
		if msg.Payload != "new" {
			t.Fatalf("unexpected payload %v", msg.Payload)
		}
	default:
		t.Fatal("expected message from the current room")
	}
}
