package telemetry

import "time"

// Event types published by the bridge.
const (
	EventReady            = "ready"
	EventHeartbeat        = "heartbeat"
	EventMissionStarted   = "WaypointMissionStarted"
	EventMissionProgress  = "WaypointMissionExecutionProgress"
	EventMissionFinished  = "WaypointMissionFinished"
	EventMissionUpload    = "WaypointMissionUploadUpdate"
	EventVirtualStickStop = "VirtualStickStopped"
)

// EventTypes lists every event type a listener may receive.
func EventTypes() []string {
	return []string{
		EventReady,
		EventHeartbeat,
		EventMissionStarted,
		EventMissionProgress,
		EventMissionFinished,
		EventMissionUpload,
		EventVirtualStickStop,
	}
}

// Event is one notification. ID is assigned by the hub.
type Event struct {
	ID   int64          `json:"id,omitempty"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
	Time time.Time      `json:"ts"`
}

// EventBuffer is a bounded ring of recent events.
type EventBuffer struct {
	events   []Event
	capacity int
	start    int
	size     int
}

// NewEventBuffer creates a buffer that keeps the last capacity events.
func NewEventBuffer(capacity int) *EventBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &EventBuffer{
		events:   make([]Event, capacity),
		capacity: capacity,
	}
}

// Add appends an event, evicting the oldest when full.
func (b *EventBuffer) Add(event Event) {
	idx := (b.start + b.size) % b.capacity
	b.events[idx] = event
	if b.size < b.capacity {
		b.size++
		return
	}
	b.start = (b.start + 1) % b.capacity
}

// After returns buffered events with ID greater than lastID, oldest first.
func (b *EventBuffer) After(lastID int64) []Event {
	var out []Event
	for i := 0; i < b.size; i++ {
		e := b.events[(b.start+i)%b.capacity]
		if e.ID > lastID {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of buffered events.
func (b *EventBuffer) Len() int {
	return b.size
}

// Capacity returns the buffer capacity.
func (b *EventBuffer) Capacity() int {
	return b.capacity
}
