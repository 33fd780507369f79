// Package rate provides Redis fixed-window counters and the login limiter
// built on them.
//
// # Window semantics
//
// INCR + EXPIRE on the first hit of a window. Key prefixes:
//   - al:  login per-username
//   - ali: login per-IP
//
// Domain policies for other flows live in internal/limiters.
package rate
