package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// SubscribeWS upgrades the request to a WebSocket and streams events as JSON
// text frames. The lastEventId query parameter, or a Last-Event-ID header,
// resumes from the replay buffer. Messages from the client are ignored; a
// read error or close frame ends the stream.
func (h *Hub) SubscribeWS(w http.ResponseWriter, r *http.Request) error {
	lastID := parseLastEventID(r.URL.Query().Get("lastEventId"))
	if lastID == 0 {
		lastID = parseLastEventID(r.Header.Get("Last-Event-ID"))
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade websocket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	sub, err := h.register(r.Context(), lastID)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub stopped"))
		return err
	}
	defer h.unregister(sub)

	go func() {
		defer sub.cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeWS(conn, h.readyEvent(sub)); err != nil {
		return err
	}

	for {
		select {
		case <-sub.ctx.Done():
			return nil
		case event, ok := <-sub.events:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub stopped"))
				return nil
			}
			if err := writeWS(conn, event); err != nil {
				return err
			}
		}
	}
}

func writeWS(conn *websocket.Conn, event Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	if err := conn.WriteJSON(event); err != nil {
		return fmt.Errorf("failed to write websocket event: %w", err)
	}
	return nil
}
