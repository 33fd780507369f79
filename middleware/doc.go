// Package middleware adapts goAccount.Engine to net/http.
//
//   - [ClientIP] stores the caller address in the request context so
//     throttles and audit events can read it.
//   - [Guard] resolves the signed session cookie to a user id and rejects
//     anonymous requests.
//
// The package only translates HTTP into Engine calls; every decision is made
// by the Engine.
package middleware
