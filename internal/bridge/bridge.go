package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flight-bridge/fcb/internal/config"
	"github.com/flight-bridge/fcb/internal/dji"
	"github.com/flight-bridge/fcb/internal/mission"
	"github.com/flight-bridge/fcb/internal/stick"
	"github.com/flight-bridge/fcb/internal/telemetry"
)

// Acknowledgements returned by the listener commands.
const (
	AckFinishedListener = "startWaypointMissionFinishedListener"
	AckUpdateListener   = "startWaypointExecutionUpdateListener"
	AckStopListeners    = "stopAllWaypointMissionListeners"
)

// errNoProduct is the host-visible message and keeps its capitalisation.
var errNoProduct = errors.New("Could not get product instance") //nolint:staticcheck // ST1005: host-visible message

// Bridge translates host commands into vendor SDK calls.
type Bridge struct {
	sdk    dji.SDK
	events EventPublisher
	timing config.TimingConfig
	log    *slog.Logger

	audit    AuditLogger
	recorder FlightDataLogger
	stick    VirtualStick

	// listener is the bridge's only mission listener. It is registered with
	// the first mission operator seen and removed by Close.
	listener     *missionListener
	listenerMu   sync.Mutex
	listenerOn   dji.MissionOperator
	updatesOn    atomic.Bool
	finishOn     atomic.Bool
	pendingMu    sync.Mutex
	pending      *missionRequest
	lastProgress atomic.Pointer[dji.ExecutionProgress]
}

// New creates a bridge. If the SDK already has a mission operator the
// mission listener is registered immediately.
func New(sdk dji.SDK, events EventPublisher, timing config.TimingConfig, log *slog.Logger) *Bridge {
	b := &Bridge{
		sdk:    sdk,
		events: events,
		timing: timing,
		log:    log,
	}
	b.listener = &missionListener{b: b}
	if op := sdk.MissionOperator(); op != nil {
		b.ensureListener(op)
	}
	return b
}

// SetAuditLogger sets the audit logger used by Dispatch.
func (b *Bridge) SetAuditLogger(l AuditLogger) {
	b.audit = l
}

// SetFlightDataLogger sets the recorder behind the flight-data commands.
func (b *Bridge) SetFlightDataLogger(l FlightDataLogger) {
	b.recorder = l
}

// SetVirtualStick sets the virtual-stick controller.
func (b *Bridge) SetVirtualStick(vs VirtualStick) {
	b.stick = vs
}

// Close removes the mission listener. Commands issued afterwards still work
// but no notifications are republished.
func (b *Bridge) Close() {
	b.listenerMu.Lock()
	defer b.listenerMu.Unlock()
	if b.listenerOn != nil {
		b.listenerOn.RemoveListener(b.listener)
		b.listenerOn = nil
	}
}

func (b *Bridge) ensureListener(op dji.MissionOperator) {
	b.listenerMu.Lock()
	defer b.listenerMu.Unlock()
	if b.listenerOn == op {
		return
	}
	if b.listenerOn != nil {
		b.listenerOn.RemoveListener(b.listener)
	}
	op.AddListener(b.listener)
	b.listenerOn = op
}

func (b *Bridge) missionOperator(op string) (dji.MissionOperator, error) {
	operator := b.sdk.MissionOperator()
	if operator == nil {
		return nil, dji.NewOpError(op, dji.ErrUnavailable, errors.New("mission operator unavailable"))
	}
	b.ensureListener(operator)
	return operator, nil
}

// call issues a vendor call and waits for its callback under timeout.
func (b *Bridge) call(ctx context.Context, op string, timeout time.Duration, fn func(done dji.CompletionFunc)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return dji.Wrap(op, dji.Await(ctx, fn))
}

// StartWaypointMission checks, loads and uploads a mission and returns once
// the vendor confirms the mission started.
func (b *Bridge) StartWaypointMission(ctx context.Context, params map[string]any) error {
	const op = "startWaypointMission"

	m, err := mission.FromParams(params)
	if err != nil {
		return dji.NewOpError(op, dji.ErrInvalidParameter, err)
	}
	operator, err := b.missionOperator(op)
	if err != nil {
		return err
	}

	req := newMissionRequest(m, operator)
	if !b.beginMission(req) {
		return dji.NewOpError(op, dji.ErrBusy, errors.New("another mission start is in progress"))
	}
	defer b.endMission(req)
	log := b.log.With("request", req.id)

	if err := operator.LoadMission(m); err != nil {
		log.Warn("mission load failed", "error", err)
		return dji.Wrap("loadMission", err)
	}
	log.Info("mission loaded, uploading", "summary", mission.Summary(m))
	operator.UploadMission(func(err error) { b.onUploadResult(req, err) })

	timeout := b.timing.CommandStartMission
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		cause := dji.ContextError(ctx)
		if errors.Is(cause, dji.ErrTimeout) {
			cause = fmt.Errorf("%w: mission start not confirmed within %s", dji.ErrTimeout, timeout)
		}
		req.settle(cause)
		log.Warn("mission start abandoned", "error", cause)
		return dji.Wrap(op, cause)
	}
}

func (b *Bridge) beginMission(req *missionRequest) bool {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	if b.pending != nil {
		return false
	}
	b.pending = req
	return true
}

func (b *Bridge) endMission(req *missionRequest) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	if b.pending == req {
		b.pending = nil
	}
}

func (b *Bridge) currentMission() *missionRequest {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	return b.pending
}

// MissionInFlight reports whether a mission start is awaiting settlement.
func (b *Bridge) MissionInFlight() bool {
	return b.currentMission() != nil
}

// onUploadResult handles the completion of an upload or of its single retry.
// Success needs no action: the start is triggered by the READY_TO_EXECUTE
// upload event.
func (b *Bridge) onUploadResult(req *missionRequest, err error) {
	if b.currentMission() != req {
		b.log.Debug("dropping upload result for stale request", "request", req.id, "error", err)
		return
	}
	if err == nil {
		b.log.Debug("mission upload accepted", "request", req.id)
		return
	}
	if req.operator.CurrentState() == dji.StateReadyToUpload && req.retried.CompareAndSwap(false, true) {
		b.log.Warn("mission upload failed, retrying", "request", req.id, "error", err)
		req.operator.RetryUploadMission(func(err error) { b.onUploadResult(req, err) })
		return
	}
	b.log.Warn("mission upload failed", "request", req.id, "retried", req.retried.Load(), "error", err)
	req.settle(dji.Wrap("uploadMission", fmt.Errorf("Upload Failed: %w", err)))
}

// onReadyToExecute starts the in-flight mission, once per request.
func (b *Bridge) onReadyToExecute() {
	req := b.currentMission()
	if req == nil {
		b.log.Debug("ready to execute with no mission start in flight")
		return
	}
	if !req.started.CompareAndSwap(false, true) {
		return
	}
	b.log.Info("mission uploaded, starting", "request", req.id)
	req.operator.StartMission(func(err error) { b.onStartResult(req, err) })
}

func (b *Bridge) onStartResult(req *missionRequest, err error) {
	data := map[string]any{"success": err == nil}
	if err != nil {
		data["error"] = err.Error()
	}
	b.publish(telemetry.EventMissionStarted, data)

	var result error
	if err != nil {
		result = dji.Wrap("startWaypointMission", err)
	}
	if !req.settle(result) {
		b.log.Warn("mission start result arrived after request was abandoned", "request", req.id, "error", err)
		return
	}
	b.log.Info("mission start settled", "request", req.id, "error", err)
}

// StopWaypointMission stops the executing mission.
func (b *Bridge) StopWaypointMission(ctx context.Context) error {
	const op = "stopWaypointMission"
	operator, err := b.missionOperator(op)
	if err != nil {
		return err
	}
	return b.call(ctx, op, b.timing.CommandStopMission, operator.StopMission)
}

// SetWaypointMissionAutoFlightSpeed changes the speed of the executing
// mission.
func (b *Bridge) SetWaypointMissionAutoFlightSpeed(ctx context.Context, speed float32) error {
	return b.setAutoFlightSpeed(ctx, "setWaypointMissionAutoFlightSpeed", speed)
}

// SetAutoFlightSpeed changes the mission auto flight speed.
func (b *Bridge) SetAutoFlightSpeed(ctx context.Context, speed float32) error {
	return b.setAutoFlightSpeed(ctx, "setAutoFlightSpeed", speed)
}

func (b *Bridge) setAutoFlightSpeed(ctx context.Context, op string, speed float32) error {
	operator, err := b.missionOperator(op)
	if err != nil {
		return err
	}
	return b.call(ctx, op, b.timing.CommandDefault, func(done dji.CompletionFunc) {
		operator.SetAutoFlightSpeed(speed, done)
	})
}

// StartVirtualStick schedules a virtual-stick run and returns without
// waiting for it.
func (b *Bridge) StartVirtualStick(_ context.Context, params map[string]any) error {
	const op = "startVirtualStick"
	p, err := stick.ParseParameters(params)
	if err != nil {
		return dji.NewOpError(op, dji.ErrInvalidParameter, err)
	}
	if b.stick == nil {
		return dji.NewOpError(op, dji.ErrUnavailable, errors.New("virtual stick is not configured"))
	}
	return dji.Wrap(op, b.stick.Start(p))
}

// StopVirtualStick signals the active virtual-stick run, if any, to end and
// returns at once.
func (b *Bridge) StopVirtualStick(_ context.Context) error {
	if b.stick != nil {
		b.stick.Stop()
	}
	return nil
}

// StartWaypointMissionFinishedListener enables finish notifications.
func (b *Bridge) StartWaypointMissionFinishedListener(_ context.Context) string {
	b.finishOn.Store(true)
	return AckFinishedListener
}

// StartWaypointExecutionUpdateListener enables progress notifications.
func (b *Bridge) StartWaypointExecutionUpdateListener(_ context.Context) string {
	b.updatesOn.Store(true)
	return AckUpdateListener
}

// StopAllWaypointMissionListeners disables both notification kinds. The
// vendor listener stays registered.
func (b *Bridge) StopAllWaypointMissionListeners(_ context.Context) string {
	b.updatesOn.Store(false)
	b.finishOn.Store(false)
	return AckStopListeners
}

// StartRecordFlightData starts recording flight data to fileName.
func (b *Bridge) StartRecordFlightData(_ context.Context, fileName string) error {
	const op = "startRecordFlightData"
	if b.recorder == nil {
		return dji.NewOpError(op, dji.ErrUnavailable, errors.New("flight data recorder is not configured"))
	}
	if err := b.recorder.StartLogging(fileName); err != nil {
		return dji.NewOpError(op, dji.ErrInternal, err)
	}
	return nil
}

// StopRecordFlightData stops recording. Stopping when idle is not an error.
func (b *Bridge) StopRecordFlightData(_ context.Context) error {
	if b.recorder == nil {
		return nil
	}
	if err := b.recorder.StopLogging(); err != nil {
		return dji.NewOpError("stopRecordFlightData", dji.ErrInternal, err)
	}
	return nil
}

func (b *Bridge) keyManager(op string) (dji.KeyManager, error) {
	keys := b.sdk.KeyManager()
	if keys == nil {
		return nil, dji.NewOpError(op, dji.ErrUnavailable, errors.New("key manager unavailable"))
	}
	return keys, nil
}

// SetTerrainFollowModeEnabled sets the terrain-follow flight parameter.
func (b *Bridge) SetTerrainFollowModeEnabled(ctx context.Context, enabled bool) error {
	const op = "setTerrainFollowModeEnabled"
	keys, err := b.keyManager(op)
	if err != nil {
		return err
	}
	return b.call(ctx, op, b.timing.CommandKeyValue, func(done dji.CompletionFunc) {
		keys.SetValue(dji.KeyTerrainFollowModeEnabled, enabled, done)
	})
}

// TerrainFollowModeEnabled reads the terrain-follow flight parameter.
func (b *Bridge) TerrainFollowModeEnabled(ctx context.Context) (bool, error) {
	const op = "getTerrainFollowModeEnabled"
	v, err := b.getKey(ctx, op, dji.KeyTerrainFollowModeEnabled)
	if err != nil {
		return false, err
	}
	enabled, ok := v.(bool)
	if !ok {
		return false, dji.NewOpError(op, dji.ErrInternal, fmt.Errorf("unexpected value type %T", v))
	}
	return enabled, nil
}

// UltrasonicHeight reads the ultrasonic height in metres.
func (b *Bridge) UltrasonicHeight(ctx context.Context) (float64, error) {
	const op = "getUltrasonicHeight"
	v, err := b.getKey(ctx, op, dji.KeyUltrasonicHeightInMeters)
	if err != nil {
		return 0, err
	}
	switch h := v.(type) {
	case float32:
		return float64(h), nil
	case float64:
		return h, nil
	default:
		return 0, dji.NewOpError(op, dji.ErrInternal, fmt.Errorf("unexpected value type %T", v))
	}
}

func (b *Bridge) getKey(ctx context.Context, op string, key dji.Key) (any, error) {
	keys, err := b.keyManager(op)
	if err != nil {
		return nil, err
	}
	var value any
	err = b.call(ctx, op, b.timing.CommandKeyValue, func(done dji.CompletionFunc) {
		keys.GetValue(key, func(v any, err error) {
			if err == nil {
				value = v
			}
			done(err)
		})
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *Bridge) flightController(op string) (dji.FlightController, error) {
	product := b.sdk.Product()
	if product == nil {
		return nil, dji.NewOpError(op, dji.ErrUnavailable, errNoProduct)
	}
	fc := product.FlightController()
	if fc == nil {
		return nil, dji.NewOpError(op, dji.ErrUnavailable, errNoProduct)
	}
	return fc, nil
}

// SetVirtualStickAdvancedModeEnabled toggles virtual-stick advanced mode.
func (b *Bridge) SetVirtualStickAdvancedModeEnabled(_ context.Context, enabled bool) error {
	fc, err := b.flightController("setVirtualStickAdvancedModeEnabled")
	if err != nil {
		return err
	}
	fc.SetVirtualStickAdvancedModeEnabled(enabled)
	return nil
}

// IsVirtualStickAdvancedModeEnabled reports virtual-stick advanced mode.
func (b *Bridge) IsVirtualStickAdvancedModeEnabled(_ context.Context) (bool, error) {
	fc, err := b.flightController("isVirtualStickAdvancedModeEnabled")
	if err != nil {
		return false, err
	}
	return fc.IsVirtualStickAdvancedModeEnabled(), nil
}

// Snapshot describes the bridge state for newly attached event listeners.
func (b *Bridge) Snapshot() map[string]any {
	snap := map[string]any{
		"missionInFlight":         b.MissionInFlight(),
		"executionUpdatesEnabled": b.updatesOn.Load(),
		"executionFinishEnabled":  b.finishOn.Load(),
		"productConnected":        b.sdk.Product() != nil,
	}
	if op := b.sdk.MissionOperator(); op != nil {
		snap["missionState"] = string(op.CurrentState())
	}
	if p := b.lastProgress.Load(); p != nil {
		snap["lastProgress"] = progressData(*p)
	}
	return snap
}

func (b *Bridge) publish(eventType string, data map[string]any) {
	if b.events == nil {
		return
	}
	if err := b.events.Publish(telemetry.Event{Type: eventType, Data: data}); err != nil {
		b.log.Warn("failed to publish event", "type", eventType, "error", err)
	}
}
