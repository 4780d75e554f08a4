package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/flight-bridge/fcb/internal/auth"
	"github.com/flight-bridge/fcb/internal/bridge"
	"github.com/flight-bridge/fcb/internal/telemetry"
)

const maxCommandBody = 1 << 20

// RegisterRoutes registers all v1 endpoints.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	apiV1 := "/api/v1"
	am := s.authMiddleware

	// Health endpoint (no auth required)
	mux.HandleFunc(apiV1+"/health", s.handleHealth)

	mux.HandleFunc(apiV1+"/capabilities", am.RequireAuth(am.RequireScope(auth.ScopeRead)(s.handleCapabilities)))

	// Command scope depends on the command, checked in the handler.
	mux.HandleFunc(apiV1+"/commands/{name}", am.RequireAuth(s.handleCommand))

	mux.HandleFunc(apiV1+"/events", am.RequireAuth(am.RequireScope(auth.ScopeTelemetry)(s.handleEvents)))
	mux.HandleFunc(apiV1+"/events/ws", am.RequireAuth(am.RequireScope(auth.ScopeTelemetry)(s.handleEventsWS)))
}

// handleCapabilities handles GET /capabilities
func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}

	WriteSuccess(w, map[string]any{
		"version":   s.version,
		"commands":  bridge.Commands(),
		"events":    telemetry.EventTypes(),
		"telemetry": []string{"sse", "websocket"},
	})
}

// handleCommand handles POST /commands/{name}
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	correlationID := uuid.NewString()
	if r.Method != http.MethodPost {
		writeResponse(w, http.StatusMethodNotAllowed, ErrorResponse("METHOD_NOT_ALLOWED",
			"Only POST method is allowed", nil, correlationID))
		return
	}

	name := r.PathValue("name")
	info, ok := bridge.Lookup(name)
	if !ok {
		writeCommandError(w, fmt.Errorf("%w: unknown command %q", bridge.ErrUnknownCommand, name), correlationID)
		return
	}

	scope := auth.ScopeControl
	if info.Access == bridge.AccessRead {
		scope = auth.ScopeRead
	}
	if !auth.Allowed(r.Context(), scope) {
		writeResponse(w, http.StatusForbidden, ErrorResponse("FORBIDDEN",
			"Insufficient permissions", map[string]string{"requiredScope": scope}, correlationID))
		return
	}

	params, err := decodeParams(r.Body)
	if err != nil {
		writeCommandError(w, err, correlationID)
		return
	}

	if s.commands == nil {
		writeResponse(w, http.StatusServiceUnavailable, ErrorResponse("UNAVAILABLE",
			"Command bridge not available", nil, correlationID))
		return
	}

	ctx := bridge.WithRequestID(r.Context(), correlationID)
	result, err := s.commands.Dispatch(ctx, name, params)
	if err != nil {
		writeCommandError(w, err, correlationID)
		return
	}
	writeResponse(w, http.StatusOK, SuccessResponse(result, correlationID))
}

// decodeParams reads the optional {"params": {...}} body (strict JSON). An
// empty body means no parameters.
func decodeParams(body io.Reader) (map[string]any, error) {
	var req struct {
		Params map[string]any `json:"params"`
	}
	dec := json.NewDecoder(io.LimitReader(body, maxCommandBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: malformed JSON or unknown fields: %v", ErrBadRequest, err)
	}
	// Trailing data check
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrBadRequest)
	}
	return req.Params, nil
}

// handleEvents handles GET /events (SSE)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}
	if s.telemetryHub == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE",
			"Telemetry service not available", nil)
		return
	}
	if err := s.telemetryHub.Subscribe(r.Context(), w, r); err != nil {
		s.log.Warn("event stream ended with error", "error", err)
		WriteError(w, http.StatusInternalServerError, "INTERNAL",
			"Failed to subscribe to event stream", nil)
	}
}

// handleEventsWS handles GET /events/ws (WebSocket)
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}
	if s.telemetryHub == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE",
			"Telemetry service not available", nil)
		return
	}
	// The upgrader has already answered the client on failure.
	if err := s.telemetryHub.SubscribeWS(w, r); err != nil {
		s.log.Debug("websocket stream ended", "error", err)
	}
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}

	subsystems := map[string]bool{
		"telemetry": s.telemetryHub != nil,
		"bridge":    s.commands != nil,
		"auth":      true,
	}
	health := map[string]any{
		"status":     "ok",
		"uptimeSec":  time.Since(s.startTime).Seconds(),
		"version":    s.version,
		"subsystems": subsystems,
	}
	if s.telemetryHub != nil {
		health["subscribers"] = s.telemetryHub.SubscriberCount()
	}
	if s.commands != nil {
		health["bridge"] = s.commands.Snapshot()
	}

	if !subsystems["telemetry"] || !subsystems["bridge"] {
		health["status"] = "degraded"
		WriteError(w, http.StatusServiceUnavailable, "SERVICE_DEGRADED",
			"One or more subsystems are unavailable", health)
		return
	}
	WriteSuccess(w, health)
}
