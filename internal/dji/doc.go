// Package dji defines the ports the bridge uses to reach the DJI-style vendor flight SDK.
//
// The vendor SDK is opaque: waypoint mission operator, key-value flight
// parameter store and the connected aircraft handle are all modelled as
// interfaces so a binding (or the in-memory simulator in package sim) can
// be plugged in without the bridge knowing which one it talks to.
//
// Completion callbacks are invoked on goroutines owned by the SDK. A nil
// error passed to a callback means success.
package dji
