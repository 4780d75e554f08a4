// Package api implements the HTTP gateway in front of the command bridge.
//
// Commands are posted as JSON to /api/v1/commands/{name}; events stream
// over SSE (/api/v1/events) or WebSocket (/api/v1/events/ws). Every JSON
// response uses the same envelope: result, data or code/message, and a
// correlation id that also appears in the audit log.
package api
