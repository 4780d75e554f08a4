// Package telemetry fans bridge events out to host listeners.
//
// Events get a monotonic id and the most recent ones are kept in a ring
// buffer so a reconnecting client can resume with Last-Event-ID. Listeners
// attach in-process (Listen), over Server-Sent Events (Subscribe) or over a
// WebSocket (SubscribeWS). A slow listener misses events rather than
// blocking the publisher.
package telemetry
