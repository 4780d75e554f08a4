package api

import (
	"context"
	"net/http"

	"github.com/flight-bridge/fcb/internal/bridge"
	"github.com/flight-bridge/fcb/internal/telemetry"
)

// CommandPort defines the minimal interface the API needs from the bridge.
type CommandPort interface {
	Dispatch(ctx context.Context, name string, params map[string]any) (any, error)
	Snapshot() map[string]any
}

// TelemetryPort defines the minimal interface the API needs from the event
// hub.
type TelemetryPort interface {
	Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error
	SubscribeWS(w http.ResponseWriter, r *http.Request) error
	SubscriberCount() int
}

// Compile-time assertions for port conformance
var _ CommandPort = (*bridge.Bridge)(nil)
var _ TelemetryPort = (*telemetry.Hub)(nil)
