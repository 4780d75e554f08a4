package sim

import (
	"sync"
	"time"

	"github.com/flight-bridge/fcb/internal/dji"
)

// MissionOperator is a simulated waypoint mission operator.
type MissionOperator struct {
	sdk *SDK

	mu              sync.Mutex
	state           dji.MissionState
	mission         *dji.WaypointMission
	listeners       []dji.MissionListener
	autoFlightSpeed float32
	calls           map[string]int
	playbackStop    chan struct{}

	// failure injection
	loadErr          error
	uploadFailures   int
	stateAfterFailed dji.MissionState
	startErr         error
	stopErr          error
	speedErr         error
}

var _ dji.MissionOperator = (*MissionOperator)(nil)

func newMissionOperator(sdk *SDK) *MissionOperator {
	return &MissionOperator{
		sdk:              sdk,
		state:            dji.StateReadyToUpload,
		calls:            make(map[string]int),
		stateAfterFailed: dji.StateReadyToUpload,
	}
}

// LoadMission implements dji.MissionOperator.
func (o *MissionOperator) LoadMission(mission *dji.WaypointMission) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls["load"]++

	if o.loadErr != nil {
		return o.loadErr
	}
	if mission == nil {
		return dji.Errorf("Mission is invalid: mission is null")
	}
	switch o.state {
	case dji.StateUploading, dji.StateExecuting, dji.StateExecutionPaused:
		return dji.Errorf("Command cannot be executed in current state %s", o.state)
	case dji.StateDisconnected:
		return dji.Errorf("The aircraft is not connected")
	}
	o.mission = mission
	o.state = dji.StateReadyToUpload
	return nil
}

// UploadMission implements dji.MissionOperator.
func (o *MissionOperator) UploadMission(done dji.CompletionFunc) {
	o.mu.Lock()
	o.calls["upload"]++
	o.mu.Unlock()
	o.upload(done)
}

// RetryUploadMission implements dji.MissionOperator.
func (o *MissionOperator) RetryUploadMission(done dji.CompletionFunc) {
	o.mu.Lock()
	o.calls["retryUpload"]++
	o.mu.Unlock()
	o.upload(done)
}

func (o *MissionOperator) upload(done dji.CompletionFunc) {
	o.mu.Lock()
	if o.mission == nil || o.state != dji.StateReadyToUpload {
		err := dji.Errorf("Command cannot be executed in current state %s", o.state)
		o.mu.Unlock()
		o.sdk.deliver(func() { done(err) })
		return
	}
	if o.uploadFailures > 0 {
		o.uploadFailures--
		o.state = o.stateAfterFailed
		o.mu.Unlock()
		o.sdk.deliver(func() { done(dji.Errorf("Upload failed: aircraft did not acknowledge waypoint")) })
		return
	}
	total := len(o.mission.Waypoints)
	o.state = dji.StateUploading
	o.mu.Unlock()

	o.sdk.deliver(func() {
		o.notifyUpload(dji.UploadEvent{
			PreviousState:         dji.StateReadyToUpload,
			CurrentState:          dji.StateUploading,
			UploadedWaypointIndex: -1,
			TotalWaypointCount:    total,
		})

		o.mu.Lock()
		if o.state != dji.StateUploading {
			o.mu.Unlock()
			done(dji.Errorf("Upload interrupted"))
			return
		}
		o.state = dji.StateReadyToExecute
		o.mu.Unlock()

		done(nil)
		o.notifyUpload(dji.UploadEvent{
			PreviousState:         dji.StateUploading,
			CurrentState:          dji.StateReadyToExecute,
			UploadedWaypointIndex: total - 1,
			TotalWaypointCount:    total,
		})
	})
}

// StartMission implements dji.MissionOperator.
func (o *MissionOperator) StartMission(done dji.CompletionFunc) {
	o.mu.Lock()
	o.calls["start"]++
	if o.startErr != nil {
		err := o.startErr
		o.mu.Unlock()
		o.sdk.deliver(func() { done(err) })
		return
	}
	if o.state != dji.StateReadyToExecute {
		err := dji.Errorf("Command cannot be executed in current state %s", o.state)
		o.mu.Unlock()
		o.sdk.deliver(func() { done(err) })
		return
	}
	o.state = dji.StateExecuting
	mission := o.mission
	step := o.sdk.opts.ExecutionStep
	var stop chan struct{}
	if step > 0 {
		stop = make(chan struct{})
		o.playbackStop = stop
	}
	o.mu.Unlock()

	o.sdk.deliver(func() {
		done(nil)
		for _, l := range o.snapshotListeners() {
			l.OnExecutionStart()
		}
		if stop != nil {
			o.playback(mission, step, stop)
		}
	})
}

// playback walks the mission waypoints, moving the simulated aircraft and
// pushing execution updates, then finishes the mission.
func (o *MissionOperator) playback(mission *dji.WaypointMission, step time.Duration, stop chan struct{}) {
	total := mission.WaypointCount()
	for i, wp := range mission.Waypoints {
		o.notifyExecution(dji.ExecutionProgress{
			TargetWaypointIndex: i,
			ExecuteState:        dji.ExecuteMoving,
			TotalWaypointCount:  total,
		})
		select {
		case <-stop:
			return
		case <-time.After(step):
		}
		o.sdk.aircraft.fc.moveTo(wp)
		o.notifyExecution(dji.ExecutionProgress{
			TargetWaypointIndex: i,
			IsWaypointReached:   true,
			ExecuteState:        dji.ExecuteFinishedAction,
			TotalWaypointCount:  total,
		})
	}

	o.mu.Lock()
	if o.playbackStop != stop {
		o.mu.Unlock()
		return
	}
	o.playbackStop = nil
	o.state = dji.StateReadyToUpload
	o.mu.Unlock()
	o.EmitExecutionFinish(nil)
}

// StopMission implements dji.MissionOperator.
func (o *MissionOperator) StopMission(done dji.CompletionFunc) {
	o.mu.Lock()
	o.calls["stop"]++
	if o.stopErr != nil {
		err := o.stopErr
		o.mu.Unlock()
		o.sdk.deliver(func() { done(err) })
		return
	}
	if o.state != dji.StateExecuting && o.state != dji.StateExecutionPaused {
		err := dji.Errorf("Command cannot be executed in current state %s", o.state)
		o.mu.Unlock()
		o.sdk.deliver(func() { done(err) })
		return
	}
	o.state = dji.StateReadyToUpload
	if o.playbackStop != nil {
		close(o.playbackStop)
		o.playbackStop = nil
	}
	o.mu.Unlock()

	o.sdk.deliver(func() {
		done(nil)
		o.EmitExecutionFinish(dji.Errorf("Mission stopped by user"))
	})
}

// SetAutoFlightSpeed implements dji.MissionOperator.
func (o *MissionOperator) SetAutoFlightSpeed(speed float32, done dji.CompletionFunc) {
	o.mu.Lock()
	o.calls["setAutoFlightSpeed"]++
	var err error
	switch {
	case o.speedErr != nil:
		err = o.speedErr
	case speed < -15 || speed > 15:
		err = dji.Errorf("Auto flight speed %.1f is out of range [-15, 15]", speed)
	default:
		o.autoFlightSpeed = speed
	}
	o.mu.Unlock()
	o.sdk.deliver(func() { done(err) })
}

// CurrentState implements dji.MissionOperator.
func (o *MissionOperator) CurrentState() dji.MissionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// AddListener implements dji.MissionListener registration. Duplicate
// registrations are kept, so a listener added twice is notified twice.
func (o *MissionOperator) AddListener(l dji.MissionListener) {
	if l == nil {
		return
	}
	o.mu.Lock()
	o.listeners = append(o.listeners, l)
	o.mu.Unlock()
}

// RemoveListener removes every registration of l.
func (o *MissionOperator) RemoveListener(l dji.MissionListener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.listeners[:0]
	for _, existing := range o.listeners {
		if existing != l {
			kept = append(kept, existing)
		}
	}
	o.listeners = kept
}

func (o *MissionOperator) snapshotListeners() []dji.MissionListener {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]dji.MissionListener, len(o.listeners))
	copy(out, o.listeners)
	return out
}

func (o *MissionOperator) notifyUpload(event dji.UploadEvent) {
	for _, l := range o.snapshotListeners() {
		l.OnUploadUpdate(event)
	}
}

func (o *MissionOperator) notifyExecution(progress dji.ExecutionProgress) {
	state := o.CurrentState()
	event := dji.ExecutionEvent{
		PreviousState: state,
		CurrentState:  state,
		Progress:      progress,
	}
	for _, l := range o.snapshotListeners() {
		l.OnExecutionUpdate(event)
	}
}

func (o *MissionOperator) stopPlayback() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.playbackStop != nil {
		close(o.playbackStop)
		o.playbackStop = nil
	}
}

// Test and demo hooks. Emit helpers call listeners on the caller's goroutine.

// EmitUploadEvent pushes an upload event to all listeners.
func (o *MissionOperator) EmitUploadEvent(event dji.UploadEvent) {
	o.notifyUpload(event)
}

// EmitExecutionUpdate pushes an execution progress event to all listeners.
func (o *MissionOperator) EmitExecutionUpdate(progress dji.ExecutionProgress) {
	o.notifyExecution(progress)
}

// EmitExecutionFinish pushes an execution finish notification.
func (o *MissionOperator) EmitExecutionFinish(err error) {
	for _, l := range o.snapshotListeners() {
		l.OnExecutionFinish(err)
	}
}

// SetState forces the operator state.
func (o *MissionOperator) SetState(state dji.MissionState) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

// FailLoad makes LoadMission return err. Nil clears it.
func (o *MissionOperator) FailLoad(err error) {
	o.mu.Lock()
	o.loadErr = err
	o.mu.Unlock()
}

// FailUploads makes the next n upload attempts (uploads and retries) fail,
// leaving the operator in stateAfter.
func (o *MissionOperator) FailUploads(n int, stateAfter dji.MissionState) {
	o.mu.Lock()
	o.uploadFailures = n
	o.stateAfterFailed = stateAfter
	o.mu.Unlock()
}

// FailStart makes StartMission report err. Nil clears it.
func (o *MissionOperator) FailStart(err error) {
	o.mu.Lock()
	o.startErr = err
	o.mu.Unlock()
}

// FailStop makes StopMission report err. Nil clears it.
func (o *MissionOperator) FailStop(err error) {
	o.mu.Lock()
	o.stopErr = err
	o.mu.Unlock()
}

// FailSetSpeed makes SetAutoFlightSpeed report err. Nil clears it.
func (o *MissionOperator) FailSetSpeed(err error) {
	o.mu.Lock()
	o.speedErr = err
	o.mu.Unlock()
}

// Calls returns how many times the named operation was invoked: load,
// upload, retryUpload, start, stop, setAutoFlightSpeed.
func (o *MissionOperator) Calls(name string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[name]
}

// ListenerCount returns the number of registered listeners.
func (o *MissionOperator) ListenerCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.listeners)
}

// LoadedMission returns the last loaded mission.
func (o *MissionOperator) LoadedMission() *dji.WaypointMission {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mission
}

// AutoFlightSpeed returns the last accepted auto flight speed.
func (o *MissionOperator) AutoFlightSpeed() float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.autoFlightSpeed
}
