// Package session provides Redis-backed login sessions for goAccount.
//
// A session is server-side state keyed by an opaque identifier held by the
// client. It may be anonymous or bound to a user. Renewal rotates the
// identifier in one atomic step that also binds the user, so a reader never
// observes a renewed-but-unbound session as authenticated.
//
// This package does not evaluate credentials or sign cookies; those belong to
// the engine and the cookie package.
package session
