package dji

// CompletionFunc receives the terminal result of an asynchronous vendor call.
type CompletionFunc func(err error)

// GetFunc receives the value read from the key-value store.
type GetFunc func(value any, err error)

// SDK is the root handle of the vendor flight SDK.
type SDK interface {
	// MissionOperator returns the waypoint mission operator, or nil if the
	// SDK has not been registered yet.
	MissionOperator() MissionOperator

	// KeyManager returns the key-value flight parameter store, or nil if
	// the SDK has not been registered yet.
	KeyManager() KeyManager

	// Product returns the connected aircraft, or nil when none is connected.
	Product() Aircraft
}

// MissionOperator manages the lifecycle of a waypoint mission.
type MissionOperator interface {
	// LoadMission hands a built mission to the operator. It is synchronous.
	LoadMission(mission *WaypointMission) error

	// UploadMission uploads the loaded mission to the aircraft.
	UploadMission(done CompletionFunc)

	// RetryUploadMission retries a failed upload. Only valid while the
	// operator reports StateReadyToUpload.
	RetryUploadMission(done CompletionFunc)

	StartMission(done CompletionFunc)
	StopMission(done CompletionFunc)

	// SetAutoFlightSpeed changes the speed of the executing mission (m/s).
	SetAutoFlightSpeed(speed float32, done CompletionFunc)

	CurrentState() MissionState

	AddListener(l MissionListener)
	RemoveListener(l MissionListener)
}

// MissionListener receives notifications pushed by the mission operator.
type MissionListener interface {
	OnUploadUpdate(event UploadEvent)
	OnExecutionUpdate(event ExecutionEvent)
	OnExecutionStart()
	OnExecutionFinish(err error)
}

// Key names a flight-controller parameter in the key-value store.
type Key string

// Flight controller keys used by the bridge.
const (
	KeyTerrainFollowModeEnabled       Key = "TerrainFollowModeEnabled"
	KeyUltrasonicHeightInMeters       Key = "UltrasonicHeightInMeters"
	KeyVirtualStickControlModeEnabled Key = "VirtualStickControlModeEnabled"
)

// KeyManager reads and writes flight-controller parameters asynchronously.
type KeyManager interface {
	GetValue(key Key, done GetFunc)
	SetValue(key Key, value any, done CompletionFunc)
}

// Aircraft is the connected product handle.
type Aircraft interface {
	FlightController() FlightController
}

// FlightController exposes direct flight-controller calls.
type FlightController interface {
	SetVirtualStickAdvancedModeEnabled(enabled bool)
	IsVirtualStickAdvancedModeEnabled() bool

	SetVirtualStickModeEnabled(enabled bool, done CompletionFunc)
	SendVirtualStickFlightControlData(data FlightControlData, done CompletionFunc)

	// State returns the latest flight-controller state snapshot.
	State() FlightControllerState
}
