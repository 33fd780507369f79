package session

// Session is the state stored under one session identifier.
//
// UserID is empty until a login binds the session. CreatedAt survives
// renewal; RenewedAt is updated on every rotation.
type Session struct {
	SessionID string
	UserID    string
	CreatedAt int64
	RenewedAt int64
}

// Authenticated reports whether the session is bound to a user.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}
