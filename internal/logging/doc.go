// Package logging builds the process-wide structured logger.
//
// Output is JSON via log/slog, to stderr or to a size-rotated file. The level
// is held in a slog.LevelVar so it can change while the process runs.
package logging
