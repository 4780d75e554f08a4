// Package auth verifies bearer tokens and enforces scopes on the host API.
//
// Scopes:
//   - read: capabilities and getter commands (names starting with get or is)
//   - control: every other command
//   - telemetry: event streams
//
// When authentication is disabled every request is treated as an operator
// holding all scopes.
package auth
