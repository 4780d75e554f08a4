package mission

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flight-bridge/fcb/internal/dji"
)

const earthRadiusMeters = 6371008.8

// Distance returns the great-circle distance in metres between two
// coordinates given in degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

// Build checks the descriptor and returns the vendor mission. The result
// shares no memory with the descriptor.
func (d *Descriptor) Build() (*dji.WaypointMission, error) {
	if err := d.Check(); err != nil {
		return nil, err
	}

	m := &dji.WaypointMission{
		Waypoints:                 make([]dji.Waypoint, 0, len(d.Waypoints)),
		AutoFlightSpeed:           float32(deref(d.AutoFlightSpeed, DefaultAutoFlightSpeed)),
		MaxFlightSpeed:            float32(deref(d.MaxFlightSpeed, DefaultMaxFlightSpeed)),
		FinishedAction:            dji.FinishedAction(d.FinishedAction),
		HeadingMode:               dji.HeadingMode(d.HeadingMode),
		FlightPathMode:            dji.FlightPathMode(d.FlightPathMode),
		GotoFirstWaypointMode:     dji.GotoWaypointMode(d.GotoFirstWaypointMode),
		ExitMissionOnRCSignalLost: d.ExitMissionOnRCSignalLost,
		RepeatTimes:               d.RepeatTimes,
	}
	for _, w := range d.Waypoints {
		wp := dji.Waypoint{
			Latitude:             *w.Latitude,
			Longitude:            *w.Longitude,
			Altitude:             float32(*w.Altitude),
			Heading:              w.Heading,
			CornerRadiusInMeters: float32(w.CornerRadiusInMeters),
			TurnMode:             dji.TurnMode(w.TurnMode),
			GimbalPitch:          float32(w.GimbalPitch),
			Speed:                float32(w.Speed),
		}
		if len(w.Actions) > 0 {
			wp.Actions = make([]dji.WaypointAction, len(w.Actions))
			for i, a := range w.Actions {
				wp.Actions[i] = dji.WaypointAction{Type: dji.ActionType(a.ActionType), Param: a.ActionParam}
			}
		}
		m.Waypoints = append(m.Waypoints, wp)
	}
	return m, nil
}

// FromParams is Parse followed by Build.
func FromParams(params map[string]any) (*dji.WaypointMission, error) {
	d, err := Parse(params)
	if err != nil {
		return nil, err
	}
	return d.Build()
}

// LoadFile reads a mission file in YAML or JSON form and decodes it.
func LoadFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mission file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse mission file %s: %w", filepath.Base(path), err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: mission file %s is empty", dji.ErrInvalidParameter, filepath.Base(path))
	}
	return Parse(raw)
}

// Summary renders a one-line description of a built mission.
func Summary(m *dji.WaypointMission) string {
	var total float64
	for i := 1; i < len(m.Waypoints); i++ {
		a, b := m.Waypoints[i-1], m.Waypoints[i]
		total += Distance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d waypoints, %.0fm path, auto %.1fm/s, max %.1fm/s, %s, finish %s",
		m.WaypointCount(), total, m.AutoFlightSpeed, m.MaxFlightSpeed, m.FlightPathMode, m.FinishedAction)
	return b.String()
}
