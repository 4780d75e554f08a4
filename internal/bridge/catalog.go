package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"

	"github.com/flight-bridge/fcb/internal/dji"
)

// ErrUnknownCommand is returned by Dispatch for names not in the catalog.
var ErrUnknownCommand = errors.New("NOT_FOUND")

// Command access classes.
const (
	AccessRead    = "read"
	AccessControl = "control"
)

// CommandInfo describes one catalog entry.
type CommandInfo struct {
	Name        string   `json:"name"`
	Access      string   `json:"access"`
	Params      []string `json:"params,omitempty"`
	Description string   `json:"description"`
	AliasOf     string   `json:"aliasOf,omitempty"`
}

type handler func(ctx context.Context, b *Bridge, params map[string]any) (any, error)

type command struct {
	info CommandInfo
	run  handler
}

type speedParams struct {
	Speed *float32 `mapstructure:"speed"`
}

type enabledParams struct {
	Enabled *bool `mapstructure:"enabled"`
}

type fileParams struct {
	FileName string `mapstructure:"fileName"`
}

var catalog = map[string]command{}

func register(info CommandInfo, run handler) {
	if strings.HasPrefix(info.Name, "get") || strings.HasPrefix(info.Name, "is") {
		info.Access = AccessRead
	} else {
		info.Access = AccessControl
	}
	catalog[info.Name] = command{info: info, run: run}
}

func alias(name, target string) {
	c := catalog[target]
	c.info.Name = name
	c.info.AliasOf = target
	catalog[name] = c
}

func init() {
	register(CommandInfo{
		Name:        "startWaypointMission",
		Params:      []string{"waypoints", "autoFlightSpeed", "maxFlightSpeed", "finishedAction", "headingMode", "flightPathMode", "gotoFirstWaypointMode", "exitMissionOnRCSignalLost", "repeatTimes"},
		Description: "Check, load and upload a waypoint mission, then start it",
	}, func(ctx context.Context, b *Bridge, p map[string]any) (any, error) {
		return nil, b.StartWaypointMission(ctx, p)
	})
	register(CommandInfo{
		Name:        "stopWaypointMission",
		Description: "Stop the executing waypoint mission",
	}, func(ctx context.Context, b *Bridge, _ map[string]any) (any, error) {
		return nil, b.StopWaypointMission(ctx)
	})
	register(CommandInfo{
		Name:        "setWaypointMissionAutoFlightSpeed",
		Params:      []string{"speed"},
		Description: "Change the speed of the executing mission (m/s)",
	}, func(ctx context.Context, b *Bridge, p map[string]any) (any, error) {
		const op = "setWaypointMissionAutoFlightSpeed"
		speed, err := decodeSpeed(op, p)
		if err != nil {
			return nil, err
		}
		return nil, b.SetWaypointMissionAutoFlightSpeed(ctx, speed)
	})
	alias("setWaypointmMissionAutoFlightSpeed", "setWaypointMissionAutoFlightSpeed")
	register(CommandInfo{
		Name:        "startVirtualStick",
		Params:      []string{"pitch", "roll", "yaw", "verticalThrottle", "durationMs", "frequencyHz", "doNotStopVirtualStickOnEnd"},
		Description: "Start a virtual-stick run; returns without waiting for it",
	}, func(ctx context.Context, b *Bridge, p map[string]any) (any, error) {
		return nil, b.StartVirtualStick(ctx, p)
	})
	register(CommandInfo{
		Name:        "stopVirtualStick",
		Description: "Signal the active virtual-stick run to stop; VirtualStickStopped follows",
	}, func(ctx context.Context, b *Bridge, _ map[string]any) (any, error) {
		return nil, b.StopVirtualStick(ctx)
	})
	register(CommandInfo{
		Name:        "startWaypointMissionFinishedListener",
		Description: "Enable WaypointMissionFinished events",
	}, func(ctx context.Context, b *Bridge, _ map[string]any) (any, error) {
		return b.StartWaypointMissionFinishedListener(ctx), nil
	})
	register(CommandInfo{
		Name:        "startWaypointExecutionUpdateListener",
		Description: "Enable WaypointMissionExecutionProgress events",
	}, func(ctx context.Context, b *Bridge, _ map[string]any) (any, error) {
		return b.StartWaypointExecutionUpdateListener(ctx), nil
	})
	register(CommandInfo{
		Name:        "stopAllWaypointMissionListeners",
		Description: "Disable progress and finish events",
	}, func(ctx context.Context, b *Bridge, _ map[string]any) (any, error) {
		return b.StopAllWaypointMissionListeners(ctx), nil
	})
	register(CommandInfo{
		Name:        "startRecordFlightData",
		Params:      []string{"fileName"},
		Description: "Start recording flight-controller state to a CSV file",
	}, func(ctx context.Context, b *Bridge, p map[string]any) (any, error) {
		var fp fileParams
		if err := decode(p, &fp); err != nil {
			return nil, dji.NewOpError("startRecordFlightData", dji.ErrInvalidParameter, err)
		}
		return nil, b.StartRecordFlightData(ctx, fp.FileName)
	})
	register(CommandInfo{
		Name:        "stopRecordFlightData",
		Description: "Stop recording flight data",
	}, func(ctx context.Context, b *Bridge, _ map[string]any) (any, error) {
		return nil, b.StopRecordFlightData(ctx)
	})
	register(CommandInfo{
		Name:        "setAutoFlightSpeed",
		Params:      []string{"speed"},
		Description: "Set the mission auto flight speed (m/s)",
	}, func(ctx context.Context, b *Bridge, p map[string]any) (any, error) {
		speed, err := decodeSpeed("setAutoFlightSpeed", p)
		if err != nil {
			return nil, err
		}
		return nil, b.SetAutoFlightSpeed(ctx, speed)
	})
	register(CommandInfo{
		Name:        "setTerrainFollowModeEnabled",
		Params:      []string{"enabled"},
		Description: "Enable or disable terrain-follow mode",
	}, func(ctx context.Context, b *Bridge, p map[string]any) (any, error) {
		enabled, err := decodeEnabled("setTerrainFollowModeEnabled", p)
		if err != nil {
			return nil, err
		}
		return nil, b.SetTerrainFollowModeEnabled(ctx, enabled)
	})
	register(CommandInfo{
		Name:        "getTerrainFollowModeEnabled",
		Description: "Read terrain-follow mode",
	}, func(ctx context.Context, b *Bridge, _ map[string]any) (any, error) {
		return b.TerrainFollowModeEnabled(ctx)
	})
	register(CommandInfo{
		Name:        "getUltrasonicHeight",
		Description: "Read the ultrasonic height in metres",
	}, func(ctx context.Context, b *Bridge, _ map[string]any) (any, error) {
		return b.UltrasonicHeight(ctx)
	})
	register(CommandInfo{
		Name:        "setVirtualStickAdvancedModeEnabled",
		Params:      []string{"enabled"},
		Description: "Enable or disable virtual-stick advanced mode",
	}, func(ctx context.Context, b *Bridge, p map[string]any) (any, error) {
		enabled, err := decodeEnabled("setVirtualStickAdvancedModeEnabled", p)
		if err != nil {
			return nil, err
		}
		return nil, b.SetVirtualStickAdvancedModeEnabled(ctx, enabled)
	})
	register(CommandInfo{
		Name:        "isVirtualStickAdvancedModeEnabled",
		Description: "Read virtual-stick advanced mode",
	}, func(ctx context.Context, b *Bridge, _ map[string]any) (any, error) {
		return b.IsVirtualStickAdvancedModeEnabled(ctx)
	})
}

func decode(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}

func decodeSpeed(op string, params map[string]any) (float32, error) {
	var sp speedParams
	if err := decode(params, &sp); err != nil {
		return 0, dji.NewOpError(op, dji.ErrInvalidParameter, err)
	}
	if sp.Speed == nil {
		return 0, dji.NewOpError(op, dji.ErrInvalidParameter, errors.New("speed is required"))
	}
	return *sp.Speed, nil
}

func decodeEnabled(op string, params map[string]any) (bool, error) {
	var ep enabledParams
	if err := decode(params, &ep); err != nil {
		return false, dji.NewOpError(op, dji.ErrInvalidParameter, err)
	}
	if ep.Enabled == nil {
		return false, dji.NewOpError(op, dji.ErrInvalidParameter, errors.New("enabled is required"))
	}
	return *ep.Enabled, nil
}

// Commands lists the catalog sorted by name.
func Commands() []CommandInfo {
	out := make([]CommandInfo, 0, len(catalog))
	for _, c := range catalog {
		out = append(out, c.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the catalog entry for name.
func Lookup(name string) (CommandInfo, bool) {
	c, ok := catalog[name]
	return c.info, ok
}

type requestIDKey struct{}

// WithRequestID attaches a request id used in audit records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Dispatch runs the named command and audits the outcome.
func (b *Bridge) Dispatch(ctx context.Context, name string, params map[string]any) (any, error) {
	c, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown command %q", ErrUnknownCommand, name)
	}

	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = WithRequestID(ctx, requestID)
	}

	start := time.Now()
	result, err := c.run(ctx, b, params)
	latency := time.Since(start)

	if err != nil {
		b.log.Warn("command failed", "command", name, "request", requestID, "code", dji.CodeOf(err), "error", err, "latency", latency)
	} else {
		b.log.Debug("command completed", "command", name, "request", requestID, "latency", latency)
	}
	if b.audit != nil {
		b.audit.LogAction(ctx, name, requestID, params, err, latency)
	}
	return result, err
}
