// Package sim provides an in-memory vendor flight SDK.
//
// It backs the bridge tests and `fcb serve --simulate`. Completion callbacks
// are delivered on SDK-owned goroutines, like the real SDK, and every
// asynchronous call can be made to fail on demand.
package sim
