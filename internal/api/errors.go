package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/flight-bridge/fcb/internal/bridge"
	"github.com/flight-bridge/fcb/internal/dji"
)

// ErrBadRequest marks a request body that could not be decoded.
var ErrBadRequest = errors.New("BAD_REQUEST")

// StatusFor maps a command error to its HTTP status and envelope code.
func StatusFor(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, ErrBadRequest.Error()
	case errors.Is(err, bridge.ErrUnknownCommand):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "CANCELLED"
	}

	switch code := dji.CodeOf(err); code {
	case dji.ErrInvalidParameter:
		return http.StatusBadRequest, code.Error()
	case dji.ErrBusy:
		return http.StatusConflict, code.Error()
	case dji.ErrUnavailable:
		return http.StatusServiceUnavailable, code.Error()
	case dji.ErrTimeout:
		return http.StatusGatewayTimeout, code.Error()
	default:
		return http.StatusInternalServerError, dji.ErrInternal.Error()
	}
}

// writeCommandError writes err as an error envelope. The message is the
// operation error text, e.g. "stopWaypointMission error: ...".
func writeCommandError(w http.ResponseWriter, err error, correlationID string) {
	status, code := StatusFor(err)
	writeResponse(w, status, ErrorResponse(code, err.Error(), nil, correlationID))
}
