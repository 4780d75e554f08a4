package sim

import (
	"sync"

	"github.com/flight-bridge/fcb/internal/dji"
)

// Aircraft is the simulated product handle.
type Aircraft struct {
	fc *FlightController
}

var _ dji.Aircraft = (*Aircraft)(nil)

func newAircraft(sdk *SDK) *Aircraft {
	return &Aircraft{fc: &FlightController{
		sdk: sdk,
		state: dji.FlightControllerState{
			Latitude:       -33.9249,
			Longitude:      18.4241,
			SatelliteCount: 14,
			FlightMode:     "GPS_ATTI",
		},
	}}
}

// FlightController implements dji.Aircraft.
func (a *Aircraft) FlightController() dji.FlightController {
	return a.fc
}

// Controller returns the concrete flight controller.
func (a *Aircraft) Controller() *FlightController {
	return a.fc
}

// FlightController is the simulated flight controller.
type FlightController struct {
	sdk *SDK

	mu               sync.Mutex
	advancedMode     bool
	virtualStickMode bool
	lastControl      dji.FlightControlData
	controlSamples   int
	state            dji.FlightControllerState
	stickModeErr     error
}

var _ dji.FlightController = (*FlightController)(nil)

// SetVirtualStickAdvancedModeEnabled implements dji.FlightController.
func (f *FlightController) SetVirtualStickAdvancedModeEnabled(enabled bool) {
	f.mu.Lock()
	f.advancedMode = enabled
	f.mu.Unlock()
}

// IsVirtualStickAdvancedModeEnabled implements dji.FlightController.
func (f *FlightController) IsVirtualStickAdvancedModeEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advancedMode
}

// SetVirtualStickModeEnabled implements dji.FlightController.
func (f *FlightController) SetVirtualStickModeEnabled(enabled bool, done dji.CompletionFunc) {
	f.mu.Lock()
	err := f.stickModeErr
	if err == nil {
		f.virtualStickMode = enabled
	}
	f.mu.Unlock()
	f.sdk.deliver(func() { done(err) })
}

// SendVirtualStickFlightControlData implements dji.FlightController.
func (f *FlightController) SendVirtualStickFlightControlData(data dji.FlightControlData, done dji.CompletionFunc) {
	f.mu.Lock()
	var err error
	if !f.virtualStickMode {
		err = dji.Errorf("Virtual stick mode is not enabled")
	} else {
		f.lastControl = data
		f.controlSamples++
	}
	f.mu.Unlock()
	if done != nil {
		f.sdk.deliver(func() { done(err) })
	}
}

// State implements dji.FlightController.
func (f *FlightController) State() dji.FlightControllerState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SetState replaces the state snapshot.
func (f *FlightController) SetState(state dji.FlightControllerState) {
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
}

// VirtualStickModeEnabled reports whether virtual-stick mode is on.
func (f *FlightController) VirtualStickModeEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.virtualStickMode
}

// ControlSamples returns how many control samples were accepted and the last one.
func (f *FlightController) ControlSamples() (int, dji.FlightControlData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.controlSamples, f.lastControl
}

// FailStickMode makes SetVirtualStickModeEnabled report err. Nil clears it.
func (f *FlightController) FailStickMode(err error) {
	f.mu.Lock()
	f.stickModeErr = err
	f.mu.Unlock()
}

func (f *FlightController) moveTo(wp dji.Waypoint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Latitude = wp.Latitude
	f.state.Longitude = wp.Longitude
	f.state.Altitude = wp.Altitude
	f.state.UltrasonicHeight = wp.Altitude
	f.state.IsFlying = true
	f.state.AreMotorsOn = true
}
