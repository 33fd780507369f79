// Package audit relays account events (logins, signups, activations, reset
// requests, password changes, logouts) to a pluggable Sink.
//
// The Dispatcher buffers events and delivers them from one goroutine, either
// dropping (and counting) or blocking when the buffer is full. Which events
// to emit is decided by the engine.
package audit
