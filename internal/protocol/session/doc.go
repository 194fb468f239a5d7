// Package session owns the single TCP link to a heater's WiFi module.
//
// Ownership boundary:
// - connect, liveness probe, reconnect
// - serialized frame read/write with deadlines
// - draining queued bytes between exchanges
// - the cached device state snapshot
//
// Any receive or send failure closes the link and reconnects; the failed
// operation is reported to the caller and never retried here.
package session
