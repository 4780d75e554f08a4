package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/flight-bridge/fcb/internal/config"
)

// ErrStopped is returned once the hub has been stopped.
var ErrStopped = errors.New("telemetry hub stopped")

// subscriber is one attached listener. events is closed by the hub, under
// h.mu, when the subscriber is removed.
type subscriber struct {
	id     string
	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	// replayedTo is the highest id already delivered by replay; fan-out
	// skips ids at or below it.
	replayedTo int64
}

// Hub distributes events to subscribers and keeps a replay buffer.
//
// Lock order: pubMu before mu. Fan-out runs under mu.RLock so that removing
// a subscriber (which closes its channel under mu.Lock) never races a send.
type Hub struct {
	cfg config.TimingConfig
	log *slog.Logger

	pubMu  sync.Mutex
	nextID int64

	mu       sync.RWMutex
	subs     map[string]*subscriber
	buffer   *EventBuffer
	lastID   int64
	stopped  bool
	snapshot func() map[string]any

	done     chan struct{}
	stopOnce sync.Once
	wg       conc.WaitGroup
}

// NewHub creates a hub and starts its heartbeat.
func NewHub(cfg config.TimingConfig, log *slog.Logger) *Hub {
	h := &Hub{
		cfg:    cfg,
		log:    log,
		subs:   make(map[string]*subscriber),
		buffer: NewEventBuffer(cfg.EventBufferSize),
		done:   make(chan struct{}),
	}
	h.wg.Go(h.heartbeatLoop)
	return h
}

// SetSnapshotFunc sets the provider of the snapshot sent in every ready
// event.
func (h *Hub) SetSnapshotFunc(fn func() map[string]any) {
	h.mu.Lock()
	h.snapshot = fn
	h.mu.Unlock()
}

// Publish assigns the next event id and delivers the event to every
// subscriber. Heartbeats are neither numbered nor buffered.
func (h *Hub) Publish(event Event) error {
	h.pubMu.Lock()
	defer h.pubMu.Unlock()

	select {
	case <-h.done:
		return ErrStopped
	default:
	}

	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	if event.Type != EventHeartbeat {
		h.nextID++
		event.ID = h.nextID

		h.mu.Lock()
		h.buffer.Add(event)
		h.lastID = event.ID
		h.mu.Unlock()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if event.ID != 0 && event.ID <= sub.replayedTo {
			continue
		}
		h.send(sub, event)
	}
	return nil
}

// send delivers to one subscriber, dropping the event if the subscriber does
// not accept it within the client send timeout.
func (h *Hub) send(sub *subscriber, event Event) {
	timer := time.NewTimer(h.cfg.ClientSendTimeout)
	defer timer.Stop()

	select {
	case sub.events <- event:
	case <-sub.ctx.Done():
	case <-h.done:
	case <-timer.C:
		h.log.Warn("dropping event for slow subscriber", "subscriber", sub.id, "type", event.Type, "id", event.ID)
	}
}

// Listen attaches an in-process listener. Events after lastID still in the
// buffer are replayed first. The channel is closed when ctx is done or the
// hub stops.
func (h *Hub) Listen(ctx context.Context, lastID int64) (<-chan Event, error) {
	sub, err := h.register(ctx, lastID)
	if err != nil {
		return nil, err
	}
	h.wg.Go(func() {
		<-sub.ctx.Done()
		h.unregister(sub)
	})
	return sub.events, nil
}

func (h *Hub) register(ctx context.Context, lastID int64) (*subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return nil, ErrStopped
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscriber{
		id:     uuid.NewString(),
		events: make(chan Event, h.buffer.Capacity()+16),
		ctx:    subCtx,
		cancel: cancel,
	}
	if lastID > 0 {
		for _, e := range h.buffer.After(lastID) {
			sub.events <- e
		}
		sub.replayedTo = h.lastID
	}
	h.subs[sub.id] = sub
	h.log.Debug("subscriber attached", "subscriber", sub.id, "lastEventId", lastID)
	return sub, nil
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub.cancel()
	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	close(sub.events)
	h.log.Debug("subscriber detached", "subscriber", sub.id)
}

// readyEvent is sent to each new SSE or WebSocket subscriber.
func (h *Hub) readyEvent(sub *subscriber) Event {
	h.mu.RLock()
	fn := h.snapshot
	h.mu.RUnlock()

	data := map[string]any{"clientId": sub.id}
	if fn != nil {
		data["snapshot"] = fn()
	}
	return Event{Type: EventReady, Data: data, Time: time.Now().UTC()}
}

// SubscriberCount returns the number of attached subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// LastEventID returns the id of the most recent numbered event.
func (h *Hub) LastEventID() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastID
}

func (h *Hub) heartbeatLoop() {
	for {
		timer := time.NewTimer(h.heartbeatDelay())
		select {
		case <-h.done:
			timer.Stop()
			return
		case <-timer.C:
		}
		if h.SubscriberCount() == 0 {
			continue
		}
		_ = h.Publish(Event{
			Type: EventHeartbeat,
			Data: map[string]any{"ts": time.Now().UTC().Format(time.RFC3339)},
		})
	}
}

// heartbeatDelay is the interval plus a uniform jitter in [-jitter, +jitter].
func (h *Hub) heartbeatDelay() time.Duration {
	d := h.cfg.HeartbeatInterval
	if j := int64(h.cfg.HeartbeatJitter); j > 0 {
		d += time.Duration(rand.Int64N(2*j+1) - j)
	}
	return d
}

// Stop detaches every subscriber and stops the heartbeat. Publish returns
// ErrStopped afterwards.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		h.stopped = true
		for id, sub := range h.subs {
			sub.cancel()
			close(sub.events)
			delete(h.subs, id)
		}
		h.mu.Unlock()

		h.wg.Wait()
	})
}
