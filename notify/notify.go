// Package notify renders and dispatches the activation and password-reset
// emails.
//
// Senders are synchronous. The engine wraps its sender in a Queue so a
// request never waits on the mail relay; failed deliveries are logged and
// counted without failing the triggering request.
package notify

import (
	"context"
	"net/url"
)

// Kind identifies which message is being sent.
type Kind string

const (
	KindActivation    Kind = "activation"
	KindPasswordReset Kind = "password_reset"
)

// Message is one rendered email.
type Message struct {
	Kind Kind
	// From overrides the sender's default address when set.
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
	// Link is the action URL embedded in the bodies.
	Link string
}

// LinkToken returns the token query parameter of Link, if any.
func (m Message) LinkToken() string {
	u, err := url.Parse(m.Link)
	if err != nil {
		return ""
	}
	return u.Query().Get("token")
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
