package dji

// MissionState is the state reported by the mission operator.
type MissionState string

// Mission operator states.
const (
	StateUnknown         MissionState = "UNKNOWN"
	StateDisconnected    MissionState = "DISCONNECTED"
	StateNotSupported    MissionState = "NOT_SUPPORTED"
	StateRecovering      MissionState = "RECOVERING"
	StateReadyToUpload   MissionState = "READY_TO_UPLOAD"
	StateUploading       MissionState = "UPLOADING"
	StateReadyToExecute  MissionState = "READY_TO_EXECUTE"
	StateExecuting       MissionState = "EXECUTING"
	StateExecutionPaused MissionState = "EXECUTION_PAUSED"
)

// ExecuteState describes what the aircraft is doing at the current waypoint.
type ExecuteState string

// Waypoint execute states.
const (
	ExecuteInitializing          ExecuteState = "INITIALIZING"
	ExecuteMoving                ExecuteState = "MOVING"
	ExecuteCurveModeMoving       ExecuteState = "CURVE_MODE_MOVING"
	ExecuteCurveModeTurning      ExecuteState = "CURVE_MODE_TURNING"
	ExecuteBeginAction           ExecuteState = "BEGIN_ACTION"
	ExecuteDoingAction           ExecuteState = "DOING_ACTION"
	ExecuteFinishedAction        ExecuteState = "FINISHED_ACTION"
	ExecuteReturnToFirstWaypoint ExecuteState = "RETURN_TO_FIRST_WAYPOINT"
	ExecutePaused                ExecuteState = "PAUSED"
)

// UploadEvent is pushed while a mission is being uploaded.
type UploadEvent struct {
	PreviousState MissionState
	CurrentState  MissionState
	// UploadedWaypointIndex is the last waypoint acknowledged by the aircraft, -1 if none.
	UploadedWaypointIndex int
	TotalWaypointCount    int
	Err                   error
}

// ExecutionProgress reports progress through the waypoint list.
type ExecutionProgress struct {
	TargetWaypointIndex int
	IsWaypointReached   bool
	ExecuteState        ExecuteState
	TotalWaypointCount  int
}

// ExecutionEvent is pushed while a mission executes.
type ExecutionEvent struct {
	PreviousState MissionState
	CurrentState  MissionState
	Progress      ExecutionProgress
}

// FlightControlData is one virtual-stick sample.
type FlightControlData struct {
	Pitch            float32
	Roll             float32
	Yaw              float32
	VerticalThrottle float32
}

// FlightControllerState is a snapshot of the aircraft state.
type FlightControllerState struct {
	Latitude         float64
	Longitude        float64
	Altitude         float32
	VelocityX        float32
	VelocityY        float32
	VelocityZ        float32
	Pitch            float64
	Roll             float64
	Yaw              float64
	UltrasonicHeight float32
	SatelliteCount   int
	FlightMode       string
	IsFlying         bool
	AreMotorsOn      bool
}
