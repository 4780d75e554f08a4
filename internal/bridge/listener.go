package bridge

import (
	"github.com/flight-bridge/fcb/internal/dji"
	"github.com/flight-bridge/fcb/internal/telemetry"
)

// missionListener receives vendor mission notifications on SDK goroutines.
type missionListener struct {
	b *Bridge
}

var _ dji.MissionListener = (*missionListener)(nil)

func (l *missionListener) OnUploadUpdate(e dji.UploadEvent) {
	data := map[string]any{
		"previousState":         string(e.PreviousState),
		"currentState":          string(e.CurrentState),
		"uploadedWaypointIndex": e.UploadedWaypointIndex,
		"totalWaypointCount":    e.TotalWaypointCount,
	}
	if e.Err != nil {
		data["error"] = e.Err.Error()
	}
	l.b.publish(telemetry.EventMissionUpload, data)

	if e.CurrentState == dji.StateReadyToExecute {
		l.b.onReadyToExecute()
	}
}

func (l *missionListener) OnExecutionUpdate(e dji.ExecutionEvent) {
	progress := e.Progress
	l.b.lastProgress.Store(&progress)
	if !l.b.updatesOn.Load() {
		return
	}
	l.b.publish(telemetry.EventMissionProgress, progressData(progress))
}

func (l *missionListener) OnExecutionStart() {
	l.b.log.Info("mission execution started")
}

func (l *missionListener) OnExecutionFinish(err error) {
	l.b.lastProgress.Store(nil)
	l.b.log.Info("mission execution finished", "error", err)
	if !l.b.finishOn.Load() {
		return
	}
	data := map[string]any{"success": err == nil}
	if err != nil {
		data["error"] = err.Error()
	}
	l.b.publish(telemetry.EventMissionFinished, data)
}

func progressData(p dji.ExecutionProgress) map[string]any {
	return map[string]any{
		"targetWaypointIndex": p.TargetWaypointIndex,
		"isWaypointReached":   p.IsWaypointReached,
		"executeState":        string(p.ExecuteState),
		"totalWaypointCount":  p.TotalWaypointCount,
	}
}
