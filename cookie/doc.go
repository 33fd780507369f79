// Package cookie carries the session identifier to the client inside a
// signed JWT stored in an HttpOnly cookie.
//
// The JWT is only an integrity wrapper: it holds the session id and an
// expiry, never user data. Authentication state stays server-side in the
// session store, so logout and password resets take effect immediately.
package cookie
