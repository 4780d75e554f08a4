package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Subscribe streams events to an SSE client until ctx is done or the hub
// stops. A Last-Event-ID header resumes from the replay buffer.
func (h *Hub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming not supported by response writer")
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control, Last-Event-ID")

	sub, err := h.register(ctx, parseLastEventID(r.Header.Get("Last-Event-ID")))
	if err != nil {
		return err
	}
	defer h.unregister(sub)

	if err := writeSSE(w, h.readyEvent(sub)); err != nil {
		return fmt.Errorf("failed to send ready event: %w", err)
	}
	flusher.Flush()

	for {
		select {
		case <-sub.ctx.Done():
			return nil
		case event, ok := <-sub.events:
			if !ok {
				return nil
			}
			if err := writeSSE(w, event); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}

// writeSSE formats one event as an SSE frame.
func writeSSE(w io.Writer, event Event) error {
	if event.ID > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", event.ID); err != nil {
			return fmt.Errorf("failed to write event ID: %w", err)
		}
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return fmt.Errorf("failed to write event type: %w", err)
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write event data: %w", err)
	}
	return nil
}

func parseLastEventID(s string) int64 {
	if s == "" {
		return 0
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
