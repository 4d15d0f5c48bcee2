package endpoints

import (
	"net/http"

	"chatting-demo-backend/internal/websocket"
)

type UtilsEndpoints interface {
	Health(http.ResponseWriter, *http.Request) error
}

type utilsEndpoints struct {
	streams *websocket.Handler
}

// NewUtilsEndpoints reports stream rooms in the health body when streams
// is set.
func NewUtilsEndpoints(streams *websocket.Handler) UtilsEndpoints {
	return &utilsEndpoints{streams: streams}
}

func (h *utilsEndpoints) Health(w http.ResponseWriter, r *http.Request) error {
	body := map[string]interface{}{"status": "ok"}
	if h.streams != nil {
		rooms := h.streams.Rooms()
		clients := 0
		for _, room := range rooms {
			clients += room.Clients
		}
		body["rooms"] = len(rooms)
		body["streamClients"] = clients
	}
	return WriteJSON(w, http.StatusOK, body)
}
