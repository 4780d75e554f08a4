// Command fcb runs the flight-controller bridge.
//
// Usage:
//
//	fcb serve [--config file] [--addr host:port] [--simulate]
//	fcb mission check <file> [--json]
//	fcb version
package main
