package dji

// FinishedAction is what the aircraft does after the last waypoint.
type FinishedAction string

const (
	FinishedNoAction         FinishedAction = "NO_ACTION"
	FinishedGoHome           FinishedAction = "GO_HOME"
	FinishedAutoLand         FinishedAction = "AUTO_LAND"
	FinishedGoFirstWaypoint  FinishedAction = "GO_FIRST_WAYPOINT"
	FinishedContinueUntilEnd FinishedAction = "CONTINUE_UNTIL_END"
)

// HeadingMode controls aircraft heading between waypoints.
type HeadingMode string

const (
	HeadingAuto                      HeadingMode = "AUTO"
	HeadingUsingInitialDirection     HeadingMode = "USING_INITIAL_DIRECTION"
	HeadingControlByRemoteController HeadingMode = "CONTROL_BY_REMOTE_CONTROLLER"
	HeadingUsingWaypointHeading      HeadingMode = "USING_WAYPOINT_HEADING"
	HeadingTowardPointOfInterest     HeadingMode = "TOWARD_POINT_OF_INTEREST"
)

// FlightPathMode selects straight or curved segments.
type FlightPathMode string

const (
	PathNormal FlightPathMode = "NORMAL"
	PathCurved FlightPathMode = "CURVED"
)

// GotoWaypointMode controls how the aircraft flies to the first waypoint.
type GotoWaypointMode string

const (
	GotoSafely       GotoWaypointMode = "SAFELY"
	GotoPointToPoint GotoWaypointMode = "POINT_TO_POINT"
)

// TurnMode is the rotation direction when changing heading at a waypoint.
type TurnMode string

const (
	TurnClockwise        TurnMode = "CLOCKWISE"
	TurnCounterClockwise TurnMode = "COUNTER_CLOCKWISE"
)

// ActionType is an action performed at a waypoint.
type ActionType string

const (
	ActionStay           ActionType = "STAY"
	ActionStartTakePhoto ActionType = "START_TAKE_PHOTO"
	ActionStartRecord    ActionType = "START_RECORD"
	ActionStopRecord     ActionType = "STOP_RECORD"
	ActionRotateAircraft ActionType = "ROTATE_AIRCRAFT"
	ActionGimbalPitch    ActionType = "GIMBAL_PITCH"
)

// WaypointAction is one action with its type-specific parameter.
type WaypointAction struct {
	Type  ActionType
	Param int
}

// Waypoint is a single mission waypoint.
type Waypoint struct {
	Latitude             float64
	Longitude            float64
	Altitude             float32
	Heading              int
	CornerRadiusInMeters float32
	TurnMode             TurnMode
	GimbalPitch          float32
	// Speed overrides the mission auto flight speed for the segment; 0 means unset.
	Speed   float32
	Actions []WaypointAction
}

// WaypointMission is the mission handed to the operator. Treat as immutable
// once loaded.
type WaypointMission struct {
	Waypoints                 []Waypoint
	AutoFlightSpeed           float32
	MaxFlightSpeed            float32
	FinishedAction            FinishedAction
	HeadingMode               HeadingMode
	FlightPathMode            FlightPathMode
	GotoFirstWaypointMode     GotoWaypointMode
	ExitMissionOnRCSignalLost bool
	RepeatTimes               int
}

// WaypointCount returns the number of waypoints.
func (m *WaypointMission) WaypointCount() int {
	if m == nil {
		return 0
	}
	return len(m.Waypoints)
}
