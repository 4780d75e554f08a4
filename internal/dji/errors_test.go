package dji

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "nil error returns nil", err: nil, expected: nil},
		{name: "unknown description maps to INTERNAL", err: Errorf("something odd happened"), expected: ErrInternal},
		{name: "disconnected aircraft maps to UNAVAILABLE", err: Errorf("The aircraft is not connected"), expected: ErrUnavailable},
		{name: "vendor timeout maps to UNAVAILABLE", err: Errorf("Execution of this process has timed out"), expected: ErrUnavailable},
		{name: "busy operator maps to BUSY", err: Errorf("The mission operator is busy"), expected: ErrBusy},
		{name: "wrong state maps to BUSY", err: Errorf("Command cannot be executed in current state"), expected: ErrBusy},
		{name: "range error maps to INVALID_PARAMETER", err: Errorf("Auto flight speed is out of range"), expected: ErrInvalidParameter},
		{name: "case insensitive match", err: errors.New("INVALID WAYPOINT"), expected: ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.err)
			if got != tt.expected {
				t.Errorf("Normalize(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestOpErrorMessageAndUnwrap(t *testing.T) {
	cause := Errorf("The aircraft is not connected")
	err := Wrap("stopWaypointMission", cause)

	if got, want := err.Error(), "stopWaypointMission error: The aircraft is not connected"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected errors.Is(err, ErrUnavailable)")
	}

	var vendorErr *Error
	if !errors.As(err, &vendorErr) {
		t.Fatalf("expected errors.As to find *Error")
	}
	if vendorErr.Description != cause.Description {
		t.Errorf("Description = %q, want %q", vendorErr.Description, cause.Description)
	}
}

func TestWrapKeepsExistingOpError(t *testing.T) {
	inner := NewOpError("loadMission", ErrInvalidParameter, Errorf("bad mission"))
	wrapped := Wrap("startWaypointMission", fmt.Errorf("context: %w", inner))

	var opErr *OpError
	if !errors.As(wrapped, &opErr) {
		t.Fatalf("expected OpError in chain")
	}
	if opErr.Op != "loadMission" {
		t.Errorf("Op = %q, want loadMission", opErr.Op)
	}
	if Wrap("x", nil) != nil {
		t.Errorf("Wrap(nil) should be nil")
	}
}

func TestOpErrorWithoutCause(t *testing.T) {
	err := NewOpError("setVirtualStickAdvancedModeEnabled", ErrUnavailable, nil)
	if got, want := err.Error(), "setVirtualStickAdvancedModeEnabled error: UNAVAILABLE"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if CodeOf(err) != ErrUnavailable {
		t.Errorf("CodeOf = %v, want UNAVAILABLE", CodeOf(err))
	}
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	if CodeOf(errors.New("plain")) != ErrInternal {
		t.Errorf("expected INTERNAL for plain error")
	}
	if CodeOf(fmt.Errorf("wrapped: %w", ErrTimeout)) != ErrTimeout {
		t.Errorf("expected TIMEOUT for wrapped timeout")
	}
}

func TestAwait(t *testing.T) {
	want := Errorf("boom")
	err := Await(context.Background(), func(done CompletionFunc) {
		go done(want)
	})
	if err != want {
		t.Errorf("Await = %v, want %v", err, want)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = Await(ctx, func(done CompletionFunc) {})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Await on deadline = %v, want TIMEOUT", err)
	}

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	err = Await(ctx, func(done CompletionFunc) {})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Await on cancel = %v, want context.Canceled", err)
	}

	// a second callback invocation must not block
	err = Await(context.Background(), func(done CompletionFunc) {
		done(nil)
		done(want)
	})
	if err != nil {
		t.Errorf("Await = %v, want nil", err)
	}
}

func TestWrapKeepsSentinelCode(t *testing.T) {
	err := Wrap("setVirtualStickModeEnabled", ErrTimeout)
	if CodeOf(err) != ErrTimeout {
		t.Errorf("CodeOf = %v, want TIMEOUT", CodeOf(err))
	}
	err = Wrap("startVirtualStick", fmt.Errorf("%w: yaw out of range", ErrInvalidParameter))
	if CodeOf(err) != ErrInvalidParameter {
		t.Errorf("CodeOf = %v, want INVALID_PARAMETER", CodeOf(err))
	}
}
