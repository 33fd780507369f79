// Package internal contains helper utilities that are intentionally private to goAccount,
// mainly secure random identifiers and token digests.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: flow orchestrators for login, activation and password reset
//   - limiters: request throttles for reset and activation-resend
//   - logging: context-aware logger interface over log/slog
//   - rate: login attempt limiter
//   - stores: Redis token-slot store
//   - validate: structural input validation
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAccount API.
//   - Be imported by any package outside the goAccount module.
package internal
