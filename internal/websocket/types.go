package websocket

import (
	"context"

	"chatting-demo-backend/internal/store"
)

// Event is one update produced by a live watch.
type Event struct {
	Type    string
	Payload interface{}
	Err     error
}

// Watch starts a live observation for a room and reports every update
// through emit until ctx is cancelled.
type Watch func(ctx context.Context, emit func(Event)) (*store.Subscription, error)

type Room struct {
	Id      string               `json:"id"`
	Clients map[string]*WSClient `json:"clients"`

	cancel context.CancelFunc
	last   *WSMessage
}

type WSMessage struct {
	// room is the room instance whose watch produced the message.
	room *Room

	Type      string      `json:"type"`
	RoomID    string      `json:"roomId"`
	Payload   interface{} `json:"payload,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type RoomRes struct {
	ID      string `json:"id"`
	Clients int    `json:"clients"`
}
