package sim

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flight-bridge/fcb/internal/dji"
)

type recordingListener struct {
	mu       sync.Mutex
	uploads  []dji.UploadEvent
	progress []dji.ExecutionProgress
	finished []error
	started  int
}

func (l *recordingListener) OnUploadUpdate(e dji.UploadEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.uploads = append(l.uploads, e)
}

func (l *recordingListener) OnExecutionUpdate(e dji.ExecutionEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = append(l.progress, e.Progress)
}

func (l *recordingListener) OnExecutionStart() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started++
}

func (l *recordingListener) OnExecutionFinish(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finished = append(l.finished, err)
}

func (l *recordingListener) uploadStates() []dji.MissionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]dji.MissionState, 0, len(l.uploads))
	for _, e := range l.uploads {
		out = append(out, e.CurrentState)
	}
	return out
}

func waitErr(t *testing.T, call func(dji.CompletionFunc)) error {
	t.Helper()
	ch := make(chan error, 1)
	call(func(err error) { ch <- err })
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("callback not delivered")
		return nil
	}
}

func twoWaypoints() *dji.WaypointMission {
	return &dji.WaypointMission{
		Waypoints: []dji.Waypoint{
			{Latitude: -33.92, Longitude: 18.42, Altitude: 30},
			{Latitude: -33.921, Longitude: 18.421, Altitude: 30},
		},
		AutoFlightSpeed: 5,
		MaxFlightSpeed:  10,
	}
}

func TestUploadThenStart(t *testing.T) {
	sdk := New(Options{})
	defer sdk.Close()
	op := sdk.Operator()
	l := &recordingListener{}
	op.AddListener(l)

	require.NoError(t, op.LoadMission(twoWaypoints()))
	require.NoError(t, waitErr(t, op.UploadMission))

	require.Eventually(t, func() bool {
		return op.CurrentState() == dji.StateReadyToExecute && len(l.uploadStates()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []dji.MissionState{dji.StateUploading, dji.StateReadyToExecute}, l.uploadStates())

	require.NoError(t, waitErr(t, op.StartMission))
	assert.Equal(t, dji.StateExecuting, op.CurrentState())
}

func TestUploadFailuresConsumeRetries(t *testing.T) {
	sdk := New(Options{})
	defer sdk.Close()
	op := sdk.Operator()
	op.FailUploads(1, dji.StateReadyToUpload)

	require.NoError(t, op.LoadMission(twoWaypoints()))
	require.Error(t, waitErr(t, op.UploadMission))
	assert.Equal(t, dji.StateReadyToUpload, op.CurrentState())

	require.NoError(t, waitErr(t, op.RetryUploadMission))
	assert.Equal(t, 1, op.Calls("upload"))
	assert.Equal(t, 1, op.Calls("retryUpload"))
}

func TestStartRequiresReadyToExecute(t *testing.T) {
	sdk := New(Options{})
	defer sdk.Close()

	err := waitErr(t, sdk.Operator().StartMission)
	require.Error(t, err)
	assert.ErrorIs(t, dji.Normalize(err), dji.ErrBusy)
}

func TestDuplicateListenerIsNotifiedTwice(t *testing.T) {
	sdk := New(Options{})
	defer sdk.Close()
	op := sdk.Operator()
	l := &recordingListener{}
	op.AddListener(l)
	op.AddListener(l)

	op.EmitExecutionFinish(nil)
	assert.Len(t, l.finished, 2)

	op.RemoveListener(l)
	assert.Equal(t, 0, op.ListenerCount())
}

func TestPlaybackFinishesMission(t *testing.T) {
	sdk := New(Options{ExecutionStep: time.Millisecond})
	defer sdk.Close()
	op := sdk.Operator()
	l := &recordingListener{}
	op.AddListener(l)

	require.NoError(t, op.LoadMission(twoWaypoints()))
	require.NoError(t, waitErr(t, op.UploadMission))
	require.Eventually(t, func() bool { return op.CurrentState() == dji.StateReadyToExecute }, time.Second, time.Millisecond)
	require.NoError(t, waitErr(t, op.StartMission))

	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.finished) == 1
	}, 2*time.Second, 5*time.Millisecond)

	l.mu.Lock()
	assert.Len(t, l.progress, 4)
	assert.NoError(t, l.finished[0])
	l.mu.Unlock()

	state := sdk.Aircraft().Controller().State()
	assert.InDelta(t, -33.921, state.Latitude, 1e-9)
}

func TestKeyManager(t *testing.T) {
	sdk := New(Options{})
	defer sdk.Close()
	keys := sdk.Keys()

	require.NoError(t, waitErr(t, func(done dji.CompletionFunc) {
		keys.SetValue(dji.KeyTerrainFollowModeEnabled, true, done)
	}))
	v, ok := keys.Value(dji.KeyTerrainFollowModeEnabled)
	require.True(t, ok)
	assert.Equal(t, true, v)

	got := make(chan any, 1)
	keys.GetValue(dji.KeyUltrasonicHeightInMeters, func(value any, err error) {
		assert.NoError(t, err)
		got <- value
	})
	assert.Equal(t, float32(0), <-got)

	sdk.SetConnected(false)
	err := waitErr(t, func(done dji.CompletionFunc) {
		keys.SetValue(dji.KeyTerrainFollowModeEnabled, false, done)
	})
	assert.ErrorIs(t, dji.Normalize(err), dji.ErrUnavailable)
}

func TestProductNilWhenDisconnected(t *testing.T) {
	sdk := New(Options{Disconnected: true})
	defer sdk.Close()

	assert.Nil(t, sdk.Product())
	sdk.SetConnected(true)
	require.NotNil(t, sdk.Product())
	assert.NotNil(t, sdk.Product().FlightController())
}
