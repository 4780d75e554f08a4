// Package bridge exposes the vendor flight SDK as a catalog of named
// commands and republishes vendor mission notifications as events.
//
// Every command blocks until the vendor's completion callback settles it,
// the caller's context ends, or the configured command timeout passes.
// Mission start is a multi-step chain (check, load, upload, start) tracked
// by a per-request context; only one may be in flight at a time.
package bridge
