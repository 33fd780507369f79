// Package flows contains the orchestration behind every Engine operation.
//
// Each flow (RunValidateCredentials, RunLogin, RunSignup, RunActivate,
// RunRequestPasswordReset, RunChangePassword, ...) takes a dependency struct
// of closures and returns the result without touching anything the
// dependencies do not reach. The Engine builds the dependency sets and owns
// every resource.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goAccount (import cycle).
//   - Perform I/O directly; stores, hashing, mail and limiters are closures.
package flows
