// Package audit writes the command audit trail.
//
// Every host command is recorded as one JSON line with the caller, the
// command name and parameters, the outcome and the normalized error code.
// The file is rotated by size through lumberjack.
package audit
