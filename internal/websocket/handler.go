package websocket

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewHandler(h *Hub, logger zerolog.Logger) *Handler {
	return &Handler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.With().Str("component", "websocket").Logger(),
	}
}

// Stream upgrades the request and joins the connection to roomID. The room's
// watch is started by the first client to join.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request, roomID, userID string, watch Watch) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Str("room", roomID).Msg("upgrade failed")
		return
	}

	clientID := userID + ":" + uuid.NewString()
	cl := &WSClient{
		Conn:    conn,
		Message: make(chan *WSMessage, 16),
		ID:      clientID,
		RoomID:  roomID,
		watch:   watch,
		logger:  h.logger.With().Str("client", clientID).Str("room", roomID).Logger(),
		done:    make(chan struct{}),
	}

	select {
	case h.hub.Register <- cl:
	case <-h.hub.Done():
		conn.Close()
		return
	}

	go cl.keepAlive()
	go cl.writeMessage()
	go cl.readMessage(h.hub)
}

func (h *Handler) Rooms() []RoomRes {
	return h.hub.RoomStats()
}
