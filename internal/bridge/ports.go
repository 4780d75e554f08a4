package bridge

import (
	"context"
	"time"

	"github.com/flight-bridge/fcb/internal/audit"
	"github.com/flight-bridge/fcb/internal/flightlog"
	"github.com/flight-bridge/fcb/internal/stick"
	"github.com/flight-bridge/fcb/internal/telemetry"
)

// EventPublisher receives events produced by the bridge.
type EventPublisher interface {
	Publish(event telemetry.Event) error
}

// AuditLogger records every command the bridge handles.
type AuditLogger interface {
	LogAction(ctx context.Context, action, requestID string, params map[string]any, err error, latency time.Duration)
}

// FlightDataLogger records flight-controller state to a named destination.
type FlightDataLogger interface {
	StartLogging(name string) error
	StopLogging() error
}

// VirtualStick runs manual-control sessions.
type VirtualStick interface {
	Start(p stick.Parameters) error
	Stop()
}

// Compile-time assertions for the production implementations.
var (
	_ EventPublisher   = (*telemetry.Hub)(nil)
	_ AuditLogger      = (*audit.Logger)(nil)
	_ FlightDataLogger = (*flightlog.Recorder)(nil)
	_ VirtualStick     = (*stick.Controller)(nil)
)
