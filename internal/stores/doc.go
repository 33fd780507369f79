// Package stores provides Redis-backed short-lived records for account
// flows: the single-slot token store used when activation and reset tokens
// live in Redis instead of the identity database.
//
// Mutations use WATCH/MULTI optimistic transactions with retry on
// contention. Only token digests are persisted.
//
// This package must not import goAccount or sibling internal packages other
// than the identity contract it implements.
package stores
