package mission

import (
	"fmt"
	"math"
	"strings"

	"github.com/flight-bridge/fcb/internal/dji"
)

// Mission limits enforced by Check.
const (
	MinWaypoints          = 2
	MaxWaypoints          = 99
	MinMaxFlightSpeed     = 2.0
	MaxMaxFlightSpeed     = 15.0
	MinAltitude           = -200.0
	MaxAltitude           = 500.0
	MinGimbalPitch        = -90.0
	MaxGimbalPitch        = 0.0
	MinWaypointSpacing    = 0.5
	MaxWaypointSpacing    = 2000.0
	MinCornerRadius       = 0.2
	MaxCornerRadius       = 1000.0
	MaxActionsPerWaypoint = 15
	MaxRepeatTimes        = 255
)

// ValidationError lists every rule a descriptor violates.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid mission: " + strings.Join(e.Problems, "; ")
}

// Unwrap lets errors.Is match dji.ErrInvalidParameter.
func (e *ValidationError) Unwrap() error {
	return dji.ErrInvalidParameter
}

type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

// Check validates the descriptor against the waypoint mission rules. It
// returns a *ValidationError naming every violation, or nil.
func (d *Descriptor) Check() error {
	var p problems

	n := len(d.Waypoints)
	if n < MinWaypoints || n > MaxWaypoints {
		p.addf("waypoint count %d must be between %d and %d", n, MinWaypoints, MaxWaypoints)
	}

	maxSpeed := deref(d.MaxFlightSpeed, DefaultMaxFlightSpeed)
	autoSpeed := deref(d.AutoFlightSpeed, DefaultAutoFlightSpeed)
	switch {
	case !finite(maxSpeed):
		p.addf("maxFlightSpeed must be a finite number")
	case maxSpeed < MinMaxFlightSpeed || maxSpeed > MaxMaxFlightSpeed:
		p.addf("maxFlightSpeed %.2f must be between %.0f and %.0f", maxSpeed, MinMaxFlightSpeed, MaxMaxFlightSpeed)
	}
	switch {
	case !finite(autoSpeed):
		p.addf("autoFlightSpeed must be a finite number")
	case finite(maxSpeed) && math.Abs(autoSpeed) > maxSpeed:
		p.addf("autoFlightSpeed %.2f exceeds maxFlightSpeed %.2f", autoSpeed, maxSpeed)
	}

	if !knownFinishedAction(d.FinishedAction) {
		p.addf("unknown finishedAction %q", d.FinishedAction)
	}
	if !knownHeadingMode(d.HeadingMode) {
		p.addf("unknown headingMode %q", d.HeadingMode)
	}
	if !knownFlightPathMode(d.FlightPathMode) {
		p.addf("unknown flightPathMode %q", d.FlightPathMode)
	}
	if !knownGotoMode(d.GotoFirstWaypointMode) {
		p.addf("unknown gotoFirstWaypointMode %q", d.GotoFirstWaypointMode)
	}
	if d.RepeatTimes < 0 || d.RepeatTimes > MaxRepeatTimes {
		p.addf("repeatTimes %d must be between 0 and %d", d.RepeatTimes, MaxRepeatTimes)
	}

	curved := dji.FlightPathMode(d.FlightPathMode) == dji.PathCurved
	for i := range d.Waypoints {
		d.Waypoints[i].check(i, curved, &p)
	}

	for i := 1; i < n; i++ {
		prev, cur := d.Waypoints[i-1], d.Waypoints[i]
		if prev.Latitude == nil || prev.Longitude == nil || cur.Latitude == nil || cur.Longitude == nil {
			continue
		}
		dist := Distance(*prev.Latitude, *prev.Longitude, *cur.Latitude, *cur.Longitude)
		if dist < MinWaypointSpacing {
			p.addf("waypoints %d and %d are too close (%.2fm)", i-1, i, dist)
		} else if dist > MaxWaypointSpacing {
			p.addf("waypoints %d and %d are too far apart (%.0fm)", i-1, i, dist)
		}
	}

	if len(p) > 0 {
		return &ValidationError{Problems: p}
	}
	return nil
}

func (w *WaypointParameters) check(i int, curved bool, p *problems) {
	if w.Latitude == nil || w.Longitude == nil || w.Altitude == nil {
		p.addf("waypoint %d: latitude, longitude and altitude are required", i)
		return
	}
	lat, lon, alt := *w.Latitude, *w.Longitude, *w.Altitude
	if !finite(lat, lon, alt, w.GimbalPitch, w.Speed, w.CornerRadiusInMeters) {
		p.addf("waypoint %d: numeric fields must be finite numbers", i)
		return
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 || (lat == 0 && lon == 0) {
		p.addf("waypoint %d: invalid coordinate (%f, %f)", i, lat, lon)
	}
	if alt < MinAltitude || alt > MaxAltitude {
		p.addf("waypoint %d: altitude %.1f must be between %.0f and %.0f", i, alt, MinAltitude, MaxAltitude)
	}
	if w.Heading < -180 || w.Heading > 180 {
		p.addf("waypoint %d: heading %d must be between -180 and 180", i, w.Heading)
	}
	if w.GimbalPitch < MinGimbalPitch || w.GimbalPitch > MaxGimbalPitch {
		p.addf("waypoint %d: gimbalPitch %.1f must be between -90 and 0", i, w.GimbalPitch)
	}
	if w.Speed < 0 || w.Speed > MaxMaxFlightSpeed {
		p.addf("waypoint %d: speed %.1f must be between 0 and %.0f", i, w.Speed, MaxMaxFlightSpeed)
	}
	if curved && (w.CornerRadiusInMeters < MinCornerRadius || w.CornerRadiusInMeters > MaxCornerRadius) {
		p.addf("waypoint %d: cornerRadiusInMeters %.2f must be between %.1f and %.0f", i, w.CornerRadiusInMeters, MinCornerRadius, MaxCornerRadius)
	}
	switch dji.TurnMode(w.TurnMode) {
	case dji.TurnClockwise, dji.TurnCounterClockwise:
	default:
		p.addf("waypoint %d: unknown turnMode %q", i, w.TurnMode)
	}
	if len(w.Actions) > MaxActionsPerWaypoint {
		p.addf("waypoint %d: %d actions exceeds %d", i, len(w.Actions), MaxActionsPerWaypoint)
	}
	for j, a := range w.Actions {
		if !knownActionType(a.ActionType) {
			p.addf("waypoint %d action %d: unknown actionType %q", i, j, a.ActionType)
		}
	}
}

// finite reports whether no value is NaN or infinite.
func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func deref(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func knownFinishedAction(s string) bool {
	switch dji.FinishedAction(s) {
	case dji.FinishedNoAction, dji.FinishedGoHome, dji.FinishedAutoLand,
		dji.FinishedGoFirstWaypoint, dji.FinishedContinueUntilEnd:
		return true
	}
	return false
}

func knownHeadingMode(s string) bool {
	switch dji.HeadingMode(s) {
	case dji.HeadingAuto, dji.HeadingUsingInitialDirection, dji.HeadingControlByRemoteController,
		dji.HeadingUsingWaypointHeading, dji.HeadingTowardPointOfInterest:
		return true
	}
	return false
}

func knownFlightPathMode(s string) bool {
	switch dji.FlightPathMode(s) {
	case dji.PathNormal, dji.PathCurved:
		return true
	}
	return false
}

func knownGotoMode(s string) bool {
	switch dji.GotoWaypointMode(s) {
	case dji.GotoSafely, dji.GotoPointToPoint:
		return true
	}
	return false
}

func knownActionType(s string) bool {
	switch dji.ActionType(s) {
	case dji.ActionStay, dji.ActionStartTakePhoto, dji.ActionStartRecord,
		dji.ActionStopRecord, dji.ActionRotateAircraft, dji.ActionGimbalPitch:
		return true
	}
	return false
}
