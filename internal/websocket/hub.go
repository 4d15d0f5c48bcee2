package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Hub owns the rooms. Each room shares one watch between its clients; the
// watch starts with the first client and stops when the last one leaves.
type Hub struct {
	Rooms      map[string]*Room
	Register   chan *WSClient
	Unregister chan *WSClient
	Broadcast  chan *WSMessage

	logger zerolog.Logger
	done   chan struct{}

	mu    sync.Mutex
	stats []RoomRes
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		Rooms:      make(map[string]*Room),
		Register:   make(chan *WSClient),
		Unregister: make(chan *WSClient),
		Broadcast:  make(chan *WSMessage),
		logger:     logger.With().Str("component", "websocket_hub").Logger(),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.Register:
			h.register(ctx, client)
		case client := <-h.Unregister:
			h.unregister(client)
		case message := <-h.Broadcast:
			h.broadcast(message)
		}
	}
}

func (h *Hub) register(ctx context.Context, client *WSClient) {
	room, ok := h.Rooms[client.RoomID]
	if !ok {
		room = h.openRoom(ctx, client.RoomID, client.watch)
	}
	room.Clients[client.ID] = client
	incConnections()
	if room.last != nil {
		h.deliver(room, client, room.last)
	}
	h.snapshotStats()
}

func (h *Hub) unregister(client *WSClient) {
	room, ok := h.Rooms[client.RoomID]
	if !ok {
		return
	}
	if current, ok := room.Clients[client.ID]; ok && current == client {
		h.drop(room, client)
	}
	if len(room.Clients) == 0 {
		h.closeRoom(room)
	}
	h.snapshotStats()
}

// broadcast fans message out to its room. Messages from the watch of a room
// that has since been closed are discarded, even when a new room with the
// same id is open.
func (h *Hub) broadcast(message *WSMessage) {
	room, ok := h.Rooms[message.RoomID]
	if !ok || message.room != room {
		return
	}
	room.last = message
	delivered := 0
	for _, client := range room.Clients {
		if h.deliver(room, client, message) {
			delivered++
		}
	}
	if delivered > 0 {
		addDelivered(delivered)
	}
	if len(room.Clients) == 0 {
		h.closeRoom(room)
	}
	h.snapshotStats()
}

// deliver hands message to client and drops clients that fall behind.
func (h *Hub) deliver(room *Room, client *WSClient, message *WSMessage) bool {
	select {
	case client.Message <- message:
		return true
	default:
		h.logger.Warn().Str("client", client.ID).Str("room", room.Id).Msg("client too slow, dropping")
		h.drop(room, client)
		return false
	}
}

func (h *Hub) drop(room *Room, client *WSClient) {
	delete(room.Clients, client.ID)
	close(client.Message)
	decConnections()
}

func (h *Hub) openRoom(ctx context.Context, id string, watch Watch) *Room {
	roomCtx, cancel := context.WithCancel(ctx)
	room := &Room{
		Id:      id,
		Clients: make(map[string]*WSClient),
		cancel:  cancel,
	}
	h.Rooms[id] = room
	setRooms(len(h.Rooms))

	if watch != nil {
		go h.watchRoom(roomCtx, room, watch)
	}
	return room
}

func (h *Hub) closeRoom(room *Room) {
	room.cancel()
	delete(h.Rooms, room.Id)
	setRooms(len(h.Rooms))
}

func (h *Hub) watchRoom(ctx context.Context, room *Room, watch Watch) {
	roomID := room.Id
	emit := func(event Event) {
		msg := &WSMessage{
			room:      room,
			Type:      event.Type,
			RoomID:    roomID,
			Payload:   event.Payload,
			Timestamp: time.Now().Unix(),
		}
		if event.Err != nil {
			msg.Error = event.Err.Error()
		}
		select {
		case h.Broadcast <- msg:
		case <-ctx.Done():
		}
	}

	sub, err := watch(ctx, emit)
	if err != nil {
		h.logger.Error().Err(err).Str("room", roomID).Msg("failed to start room watch")
		emit(Event{Type: "error", Err: err})
		return
	}
	<-sub.Done()
	h.logger.Debug().Str("room", roomID).Msg("room watch stopped")
}

func (h *Hub) closeAll() {
	for _, room := range h.Rooms {
		for _, client := range room.Clients {
			h.drop(room, client)
		}
		h.closeRoom(room)
	}
	h.snapshotStats()
}

func (h *Hub) snapshotStats() {
	stats := make([]RoomRes, 0, len(h.Rooms))
	for _, room := range h.Rooms {
		stats = append(stats, RoomRes{ID: room.Id, Clients: len(room.Clients)})
	}
	h.mu.Lock()
	h.stats = stats
	h.mu.Unlock()
}

// RoomStats returns the rooms as of the last hub event.
func (h *Hub) RoomStats() []RoomRes {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]RoomRes, len(h.stats))
	copy(out, h.stats)
	return out
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
