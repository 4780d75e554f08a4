package sim

import (
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/flight-bridge/fcb/internal/dji"
)

// Options configures the simulator.
type Options struct {
	// CallbackDelay is applied before every asynchronous callback.
	CallbackDelay time.Duration

	// ExecutionStep is the time spent per waypoint when a started mission is
	// played back. Zero disables playback; tests then drive execution events
	// through the Emit helpers.
	ExecutionStep time.Duration

	// Disconnected starts the simulator without an aircraft.
	Disconnected bool
}

// SDK implements dji.SDK.
type SDK struct {
	opts Options

	mu        sync.RWMutex
	connected bool
	closed    bool
	wg        conc.WaitGroup

	operator *MissionOperator
	keys     *KeyManager
	aircraft *Aircraft
}

var _ dji.SDK = (*SDK)(nil)

// New creates a simulator.
func New(opts Options) *SDK {
	s := &SDK{
		opts:      opts,
		connected: !opts.Disconnected,
	}
	s.aircraft = newAircraft(s)
	s.operator = newMissionOperator(s)
	s.keys = newKeyManager(s)
	return s
}

// MissionOperator implements dji.SDK.
func (s *SDK) MissionOperator() dji.MissionOperator {
	return s.operator
}

// KeyManager implements dji.SDK.
func (s *SDK) KeyManager() dji.KeyManager {
	return s.keys
}

// Product implements dji.SDK. It returns an untyped nil when the aircraft
// is disconnected.
func (s *SDK) Product() dji.Aircraft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return nil
	}
	return s.aircraft
}

// SetConnected connects or disconnects the simulated aircraft.
func (s *SDK) SetConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}

// Operator returns the concrete mission operator for failure injection.
func (s *SDK) Operator() *MissionOperator {
	return s.operator
}

// Keys returns the concrete key manager for failure injection.
func (s *SDK) Keys() *KeyManager {
	return s.keys
}

// Aircraft returns the simulated aircraft regardless of connection state.
func (s *SDK) Aircraft() *Aircraft {
	return s.aircraft
}

// Close stops playback and waits for outstanding callbacks. Callbacks
// scheduled after Close are dropped.
func (s *SDK) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.operator.stopPlayback()
	_ = s.wg.WaitAndRecover()
}

// deliver runs fn on an SDK goroutine after the configured callback delay.
func (s *SDK) deliver(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	delay := s.opts.CallbackDelay
	s.wg.Go(func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		fn()
	})
}

func (s *SDK) isConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}
