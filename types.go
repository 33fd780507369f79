package goAccount

import (
	"github.com/MrEthical07/goAccount/identity"
	"github.com/MrEthical07/goAccount/notify"
)

// User is the identity record returned by the identity store.
type User = identity.User

// Status is the activation state of an account.
type Status = identity.Status

const (
	StatusPending = identity.StatusPending
	StatusActive  = identity.StatusActive
)

// IdentityStore is the persistence contract the Engine runs on.
type IdentityStore = identity.Store

// Notifier delivers activation and reset emails.
type Notifier = notify.Sender

// SignupRequest is the input of Engine.Signup.
type SignupRequest struct {
	Username string
	Email    string
	Password string
}

// ChangePasswordRequest is the input of Engine.ChangePassword.
type ChangePasswordRequest struct {
	ResetToken    string
	Password      string
	PasswordAgain string
}
