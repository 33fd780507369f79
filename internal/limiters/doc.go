// Package limiters provides per-flow request throttles built on the
// internal/rate fixed windows.
//
//   - [NewPasswordResetLimiter] throttles reset-link requests.
//   - [NewActivationResendLimiter] throttles activation-link resends.
//   - [NewSignupLimiter] throttles account creation.
//
// Each limiter counts per identifier (normalized email) and per client IP
// in its own key namespace. All methods are nil-safe: a nil limiter allows
// everything.
package limiters
