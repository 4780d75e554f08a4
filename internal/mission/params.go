package mission

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/flight-bridge/fcb/internal/dji"
)

// Defaults applied when the host omits a field.
const (
	DefaultMaxFlightSpeed  = 15.0
	DefaultAutoFlightSpeed = 10.0
	DefaultCornerRadius    = 0.2
)

// ActionParameters is one waypoint action as supplied by the host.
type ActionParameters struct {
	ActionType  string `mapstructure:"actionType"`
	ActionParam int    `mapstructure:"actionParam"`
}

// WaypointParameters is one waypoint as supplied by the host. Latitude,
// longitude and altitude are required.
type WaypointParameters struct {
	Latitude             *float64           `mapstructure:"latitude"`
	Longitude            *float64           `mapstructure:"longitude"`
	Altitude             *float64           `mapstructure:"altitude"`
	Heading              int                `mapstructure:"heading"`
	CornerRadiusInMeters float64            `mapstructure:"cornerRadiusInMeters"`
	TurnMode             string             `mapstructure:"turnMode"`
	GimbalPitch          float64            `mapstructure:"gimbalPitch"`
	Speed                float64            `mapstructure:"speed"`
	Actions              []ActionParameters `mapstructure:"actions"`
}

// Descriptor is a decoded, not yet validated, waypoint mission.
type Descriptor struct {
	Waypoints                 []WaypointParameters `mapstructure:"waypoints"`
	AutoFlightSpeed           *float64             `mapstructure:"autoFlightSpeed"`
	MaxFlightSpeed            *float64             `mapstructure:"maxFlightSpeed"`
	FinishedAction            string               `mapstructure:"finishedAction"`
	HeadingMode               string               `mapstructure:"headingMode"`
	FlightPathMode            string               `mapstructure:"flightPathMode"`
	GotoFirstWaypointMode     string               `mapstructure:"gotoFirstWaypointMode"`
	ExitMissionOnRCSignalLost bool                 `mapstructure:"exitMissionOnRCSignalLost"`
	RepeatTimes               int                  `mapstructure:"repeatTimes"`
}

// Parse decodes host parameters into a Descriptor. Numbers may arrive as
// any numeric type or numeric string; unknown keys are rejected. Decode
// failures wrap dji.ErrInvalidParameter.
func Parse(params map[string]any) (*Descriptor, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: mission parameters are missing", dji.ErrInvalidParameter)
	}

	var d Descriptor
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &d,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mission decoder: %w", err)
	}
	if err := dec.Decode(params); err != nil {
		return nil, fmt.Errorf("%w: %v", dji.ErrInvalidParameter, err)
	}

	d.applyDefaults()
	return &d, nil
}

func (d *Descriptor) applyDefaults() {
	if d.MaxFlightSpeed == nil {
		v := DefaultMaxFlightSpeed
		d.MaxFlightSpeed = &v
	}
	if d.AutoFlightSpeed == nil {
		v := DefaultAutoFlightSpeed
		if v > *d.MaxFlightSpeed {
			v = *d.MaxFlightSpeed
		}
		d.AutoFlightSpeed = &v
	}
	if d.FinishedAction == "" {
		d.FinishedAction = string(dji.FinishedNoAction)
	}
	if d.HeadingMode == "" {
		d.HeadingMode = string(dji.HeadingAuto)
	}
	if d.FlightPathMode == "" {
		d.FlightPathMode = string(dji.PathNormal)
	}
	if d.GotoFirstWaypointMode == "" {
		d.GotoFirstWaypointMode = string(dji.GotoSafely)
	}
	for i := range d.Waypoints {
		wp := &d.Waypoints[i]
		if wp.TurnMode == "" {
			wp.TurnMode = string(dji.TurnClockwise)
		}
		if wp.CornerRadiusInMeters == 0 {
			wp.CornerRadiusInMeters = DefaultCornerRadius
		}
	}
}
