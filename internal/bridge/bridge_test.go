package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flight-bridge/fcb/internal/config"
	"github.com/flight-bridge/fcb/internal/dji"
	"github.com/flight-bridge/fcb/internal/dji/sim"
	"github.com/flight-bridge/fcb/internal/logging"
	"github.com/flight-bridge/fcb/internal/stick"
	"github.com/flight-bridge/fcb/internal/telemetry"
)

type eventLog struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (l *eventLog) Publish(e telemetry.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) ofType(eventType string) []telemetry.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []telemetry.Event
	for _, e := range l.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	bridge *Bridge
	sdk    *sim.SDK
	events *eventLog
}

func newFixture(t *testing.T, opts sim.Options, modify func(*config.TimingConfig)) *fixture {
	t.Helper()
	timing := config.Baseline().Timing
	timing.CommandStartMission = 2 * time.Second
	timing.CommandDefault = time.Second
	timing.CommandStopMission = time.Second
	timing.CommandKeyValue = time.Second
	if modify != nil {
		modify(&timing)
	}
	sdk := sim.New(opts)
	events := &eventLog{}
	b := New(sdk, events, timing, logging.Discard())
	t.Cleanup(func() {
		b.Close()
		sdk.Close()
	})
	return &fixture{bridge: b, sdk: sdk, events: events}
}

func missionParams() map[string]any {
	return map[string]any{
		"autoFlightSpeed": 5,
		"maxFlightSpeed":  10,
		"waypoints": []any{
			map[string]any{"latitude": -33.9249, "longitude": 18.4241, "altitude": 30},
			map[string]any{"latitude": -33.9259, "longitude": 18.4251, "altitude": 30},
		},
	}
}

func TestStartWaypointMissionSucceeds(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	op := f.sdk.Operator()

	require.NoError(t, f.bridge.StartWaypointMission(context.Background(), missionParams()))

	assert.Equal(t, 1, op.Calls("load"))
	assert.Equal(t, 1, op.Calls("upload"))
	assert.Equal(t, 0, op.Calls("retryUpload"))
	assert.Equal(t, 1, op.Calls("start"))
	assert.Equal(t, dji.StateExecuting, op.CurrentState())
	assert.Equal(t, 2, op.LoadedMission().WaypointCount())
	assert.False(t, f.bridge.MissionInFlight())

	started := f.events.ofType(telemetry.EventMissionStarted)
	require.Len(t, started, 1)
	assert.Equal(t, true, started[0].Data["success"])
	assert.NotEmpty(t, f.events.ofType(telemetry.EventMissionUpload))
}

func TestStartWaypointMissionRejectsMalformedParams(t *testing.T) {
	cases := map[string]map[string]any{
		"nil":            nil,
		"one waypoint":   {"waypoints": []any{map[string]any{"latitude": 1, "longitude": 1, "altitude": 10}}},
		"unknown field":  {"waypoints": []any{}, "colour": "red"},
		"speed too high": {"maxFlightSpeed": 30, "waypoints": missionParams()["waypoints"]},
		"non-finite values": {
			"maxFlightSpeed": "NaN",
			"waypoints": []any{
				map[string]any{"latitude": "NaN", "longitude": 18.4241, "altitude": "NaN"},
				map[string]any{"latitude": -33.9259, "longitude": 18.4251, "altitude": 30},
			},
		},
	}
	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, sim.Options{}, nil)
			err := f.bridge.StartWaypointMission(context.Background(), params)
			require.Error(t, err)
			assert.ErrorIs(t, err, dji.ErrInvalidParameter)
			assert.Contains(t, err.Error(), "startWaypointMission error: ")
			assert.Equal(t, 0, f.sdk.Operator().Calls("load"))
			assert.Equal(t, 0, f.sdk.Operator().Calls("upload"))
		})
	}
}

func TestStartWaypointMissionLoadFailure(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	f.sdk.Operator().FailLoad(dji.Errorf("Waypoint count is invalid"))

	err := f.bridge.StartWaypointMission(context.Background(), missionParams())
	require.Error(t, err)
	assert.Equal(t, "loadMission error: Waypoint count is invalid", err.Error())
	assert.ErrorIs(t, err, dji.ErrInvalidParameter)
	assert.Equal(t, 0, f.sdk.Operator().Calls("upload"))
	assert.False(t, f.bridge.MissionInFlight())
}

func TestStartWaypointMissionRetriesUploadOnce(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	op := f.sdk.Operator()
	op.FailUploads(1, dji.StateReadyToUpload)

	require.NoError(t, f.bridge.StartWaypointMission(context.Background(), missionParams()))
	assert.Equal(t, 1, op.Calls("upload"))
	assert.Equal(t, 1, op.Calls("retryUpload"))
	assert.Equal(t, 1, op.Calls("start"))
}

func TestStartWaypointMissionRetryFailureRejects(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	op := f.sdk.Operator()
	op.FailUploads(5, dji.StateReadyToUpload)

	err := f.bridge.StartWaypointMission(context.Background(), missionParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uploadMission error: Upload Failed: ")
	assert.Equal(t, 1, op.Calls("upload"))
	assert.Equal(t, 1, op.Calls("retryUpload"))
	assert.Equal(t, 0, op.Calls("start"))
	assert.Empty(t, f.events.ofType(telemetry.EventMissionStarted))
}

func TestStartWaypointMissionNoRetryOutsideReadyToUpload(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	op := f.sdk.Operator()
	op.FailUploads(1, dji.StateDisconnected)

	err := f.bridge.StartWaypointMission(context.Background(), missionParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uploadMission error: Upload Failed")
	assert.Equal(t, 0, op.Calls("retryUpload"))
}

func TestStartWaypointMissionStartFailure(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	f.sdk.Operator().FailStart(dji.Errorf("Aircraft is flying too low"))

	err := f.bridge.StartWaypointMission(context.Background(), missionParams())
	require.Error(t, err)
	assert.Equal(t, "startWaypointMission error: Aircraft is flying too low", err.Error())
	assert.ErrorIs(t, err, dji.ErrInvalidParameter)

	started := f.events.ofType(telemetry.EventMissionStarted)
	require.Len(t, started, 1)
	assert.Equal(t, false, started[0].Data["success"])
}

func TestStartWaypointMissionRejectsConcurrentStart(t *testing.T) {
	f := newFixture(t, sim.Options{CallbackDelay: 100 * time.Millisecond}, nil)

	first := make(chan error, 1)
	go func() { first <- f.bridge.StartWaypointMission(context.Background(), missionParams()) }()
	require.Eventually(t, f.bridge.MissionInFlight, time.Second, time.Millisecond)

	err := f.bridge.StartWaypointMission(context.Background(), missionParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, dji.ErrBusy)

	require.NoError(t, <-first)
	assert.Equal(t, 1, f.sdk.Operator().Calls("start"))
	assert.Len(t, f.events.ofType(telemetry.EventMissionStarted), 1)
}

func TestStartWaypointMissionTimeoutFreesSlot(t *testing.T) {
	f := newFixture(t, sim.Options{CallbackDelay: 150 * time.Millisecond}, func(tc *config.TimingConfig) {
		tc.CommandStartMission = 30 * time.Millisecond
	})

	err := f.bridge.StartWaypointMission(context.Background(), missionParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, dji.ErrTimeout)
	assert.Contains(t, err.Error(), "startWaypointMission error: ")
	assert.False(t, f.bridge.MissionInFlight())

	// The late upload result belongs to the abandoned request and must not
	// start the mission.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, f.sdk.Operator().Calls("start"))
}

func TestStartWaypointMissionHonoursCallerContext(t *testing.T) {
	f := newFixture(t, sim.Options{CallbackDelay: 200 * time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.bridge.StartWaypointMission(ctx, missionParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, f.bridge.MissionInFlight())
}

func TestExecutionUpdatesGatedByFlag(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	op := f.sdk.Operator()
	progress := dji.ExecutionProgress{TargetWaypointIndex: 1, IsWaypointReached: true, ExecuteState: dji.ExecuteMoving}

	op.EmitExecutionUpdate(progress)
	assert.Empty(t, f.events.ofType(telemetry.EventMissionProgress))

	assert.Equal(t, AckUpdateListener, f.bridge.StartWaypointExecutionUpdateListener(context.Background()))
	op.EmitExecutionUpdate(progress)
	got := f.events.ofType(telemetry.EventMissionProgress)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Data["targetWaypointIndex"])
	assert.Equal(t, true, got[0].Data["isWaypointReached"])
	assert.Equal(t, "MOVING", got[0].Data["executeState"])

	assert.Equal(t, AckStopListeners, f.bridge.StopAllWaypointMissionListeners(context.Background()))
	op.EmitExecutionUpdate(progress)
	assert.Len(t, f.events.ofType(telemetry.EventMissionProgress), 1)
	assert.Equal(t, 1, op.ListenerCount())
}

func TestListenerCommandsNeverDuplicateDelivery(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	op := f.sdk.Operator()
	ctx := context.Background()

	for range 3 {
		f.bridge.StartWaypointMissionFinishedListener(ctx)
		f.bridge.StartWaypointExecutionUpdateListener(ctx)
	}
	require.NoError(t, f.bridge.StartWaypointMission(ctx, missionParams()))
	assert.Equal(t, 1, op.ListenerCount())

	op.EmitExecutionUpdate(dji.ExecutionProgress{TargetWaypointIndex: 0})
	op.EmitExecutionFinish(nil)
	assert.Len(t, f.events.ofType(telemetry.EventMissionProgress), 1)
	finished := f.events.ofType(telemetry.EventMissionFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, true, finished[0].Data["success"])
}

func TestFinishListenerReportsError(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	f.bridge.StartWaypointMissionFinishedListener(context.Background())

	f.sdk.Operator().EmitExecutionFinish(dji.Errorf("Mission stopped by user"))
	finished := f.events.ofType(telemetry.EventMissionFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, false, finished[0].Data["success"])
	assert.Equal(t, "Mission stopped by user", finished[0].Data["error"])
}

func TestPlaybackEndToEnd(t *testing.T) {
	f := newFixture(t, sim.Options{ExecutionStep: 5 * time.Millisecond}, nil)
	ctx := context.Background()
	f.bridge.StartWaypointMissionFinishedListener(ctx)
	f.bridge.StartWaypointExecutionUpdateListener(ctx)

	require.NoError(t, f.bridge.StartWaypointMission(ctx, missionParams()))
	require.Eventually(t, func() bool {
		return len(f.events.ofType(telemetry.EventMissionFinished)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, f.events.ofType(telemetry.EventMissionProgress), 4)
}

func TestStopWaypointMission(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	ctx := context.Background()

	err := f.bridge.StopWaypointMission(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopWaypointMission error: Command cannot be executed")
	assert.ErrorIs(t, err, dji.ErrBusy)

	require.NoError(t, f.bridge.StartWaypointMission(ctx, missionParams()))
	require.NoError(t, f.bridge.StopWaypointMission(ctx))
	assert.Equal(t, dji.StateReadyToUpload, f.sdk.Operator().CurrentState())
}

func TestAutoFlightSpeed(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	ctx := context.Background()
	op := f.sdk.Operator()

	require.NoError(t, f.bridge.SetAutoFlightSpeed(ctx, 7))
	assert.Equal(t, float32(7), op.AutoFlightSpeed())
	require.NoError(t, f.bridge.SetWaypointMissionAutoFlightSpeed(ctx, -3))
	assert.Equal(t, float32(-3), op.AutoFlightSpeed())

	err := f.bridge.SetAutoFlightSpeed(ctx, 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, dji.ErrInvalidParameter)
	assert.Contains(t, err.Error(), "setAutoFlightSpeed error: ")

	op.FailSetSpeed(dji.Errorf("The aircraft is not connected"))
	err = f.bridge.SetWaypointMissionAutoFlightSpeed(ctx, 5)
	assert.ErrorIs(t, err, dji.ErrUnavailable)
	assert.Contains(t, err.Error(), "setWaypointMissionAutoFlightSpeed error: ")
}

func TestTerrainFollowMode(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	ctx := context.Background()
	keys := f.sdk.Keys()

	require.NoError(t, f.bridge.SetTerrainFollowModeEnabled(ctx, true))
	v, _ := keys.Value(dji.KeyTerrainFollowModeEnabled)
	assert.Equal(t, true, v)
	v, _ = keys.Value(dji.KeyVirtualStickControlModeEnabled)
	assert.Equal(t, false, v)

	enabled, err := f.bridge.TerrainFollowModeEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	keys.Fail(dji.KeyTerrainFollowModeEnabled, dji.Errorf("Key is busy"))
	err = f.bridge.SetTerrainFollowModeEnabled(ctx, false)
	assert.Equal(t, "setTerrainFollowModeEnabled error: Key is busy", err.Error())
	assert.ErrorIs(t, err, dji.ErrBusy)
}

func TestUltrasonicHeight(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	ctx := context.Background()
	keys := f.sdk.Keys()

	keys.Set(dji.KeyUltrasonicHeightInMeters, float32(3.5))
	h, err := f.bridge.UltrasonicHeight(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, h, 1e-6)

	keys.Set(dji.KeyUltrasonicHeightInMeters, "high")
	_, err = f.bridge.UltrasonicHeight(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, dji.ErrInternal)

	f.sdk.SetConnected(false)
	_, err = f.bridge.UltrasonicHeight(ctx)
	assert.ErrorIs(t, err, dji.ErrUnavailable)
	assert.Contains(t, err.Error(), "getUltrasonicHeight error: ")
}

func TestVirtualStickAdvancedMode(t *testing.T) {
	f := newFixture(t, sim.Options{Disconnected: true}, nil)
	ctx := context.Background()

	err := f.bridge.SetVirtualStickAdvancedModeEnabled(ctx, true)
	require.Error(t, err)
	assert.Equal(t, "setVirtualStickAdvancedModeEnabled error: Could not get product instance", err.Error())
	assert.ErrorIs(t, err, dji.ErrUnavailable)
	_, err = f.bridge.IsVirtualStickAdvancedModeEnabled(ctx)
	assert.ErrorIs(t, err, dji.ErrUnavailable)

	f.sdk.SetConnected(true)
	require.NoError(t, f.bridge.SetVirtualStickAdvancedModeEnabled(ctx, true))
	enabled, err := f.bridge.IsVirtualStickAdvancedModeEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)
}

type fakeRecorder struct {
	started []string
	stops   int
	err     error
}

func (r *fakeRecorder) StartLogging(name string) error {
	r.started = append(r.started, name)
	return r.err
}

func (r *fakeRecorder) StopLogging() error {
	r.stops++
	return nil
}

func TestRecordFlightData(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	ctx := context.Background()

	require.NoError(t, f.bridge.StopRecordFlightData(ctx))
	err := f.bridge.StartRecordFlightData(ctx, "flight1.csv")
	assert.ErrorIs(t, err, dji.ErrUnavailable)

	rec := &fakeRecorder{}
	f.bridge.SetFlightDataLogger(rec)
	require.NoError(t, f.bridge.StartRecordFlightData(ctx, "flight1.csv"))
	require.NoError(t, f.bridge.StopRecordFlightData(ctx))
	assert.Equal(t, []string{"flight1.csv"}, rec.started)
	assert.Equal(t, 1, rec.stops)

	rec.err = errors.New("disk full")
	err = f.bridge.StartRecordFlightData(ctx, "flight2.csv")
	assert.Equal(t, "startRecordFlightData error: disk full", err.Error())
}

func TestVirtualStickCommands(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	ctx := context.Background()

	err := f.bridge.StartVirtualStick(ctx, nil)
	assert.ErrorIs(t, err, dji.ErrUnavailable)
	require.NoError(t, f.bridge.StopVirtualStick(ctx))

	vs := stick.NewController(f.sdk, f.events, config.VirtualStickConfig{FrequencyHz: 50}, logging.Discard())
	t.Cleanup(vs.Close)
	f.bridge.SetVirtualStick(vs)

	err = f.bridge.StartVirtualStick(ctx, map[string]any{"pitch": 99})
	assert.ErrorIs(t, err, dji.ErrInvalidParameter)

	require.NoError(t, f.bridge.StartVirtualStick(ctx, map[string]any{"pitch": 1, "durationMs": 0}))
	require.Eventually(t, f.sdk.Aircraft().Controller().VirtualStickModeEnabled, time.Second, time.Millisecond)
	require.NoError(t, f.bridge.StopVirtualStick(ctx))
	require.Eventually(t, func() bool {
		return len(f.events.ofType(telemetry.EventVirtualStickStop)) == 1
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !vs.Running() }, time.Second, time.Millisecond)

	stopped := f.events.ofType(telemetry.EventVirtualStickStop)
	require.Len(t, stopped, 1)
	assert.Equal(t, stick.ReasonStopped, stopped[0].Data["reason"])
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	f.bridge.StartWaypointExecutionUpdateListener(context.Background())
	f.sdk.Operator().EmitExecutionUpdate(dji.ExecutionProgress{TargetWaypointIndex: 2})

	snap := f.bridge.Snapshot()
	assert.Equal(t, false, snap["missionInFlight"])
	assert.Equal(t, true, snap["executionUpdatesEnabled"])
	assert.Equal(t, false, snap["executionFinishEnabled"])
	assert.Equal(t, true, snap["productConnected"])
	assert.Equal(t, "READY_TO_UPLOAD", snap["missionState"])
	assert.Equal(t, 2, snap["lastProgress"].(map[string]any)["targetWaypointIndex"])
}

func TestCloseRemovesListener(t *testing.T) {
	f := newFixture(t, sim.Options{}, nil)
	require.Equal(t, 1, f.sdk.Operator().ListenerCount())
	f.bridge.Close()
	assert.Equal(t, 0, f.sdk.Operator().ListenerCount())
}
