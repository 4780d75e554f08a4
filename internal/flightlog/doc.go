// Package flightlog records flight-controller state to CSV files.
//
// A Recorder samples the connected aircraft at a fixed interval and writes
// one row per sample under the configured directory. It serves the
// startRecordFlightData and stopRecordFlightData commands.
package flightlog
