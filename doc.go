// Package goAccount authenticates users and runs the lifecycle of their
// time-bounded single-use secrets: activation tokens, password-reset tokens
// and login sessions.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goAccount is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy and [Classify]. Flow orchestration, throttling, audit
// dispatch and the Redis token-slot store live under internal/. Durable
// identity storage is behind [IdentityStore]; store/postgres and store/memory
// implement it. Transport mapping lives only in httpapi.
//
// # What this package must NOT do
//
//   - Reveal whether a username or email exists through errors or timing.
//   - Accept a token more than once, or any token but the latest of its kind.
//   - Hold a lock across a store call.
package goAccount
