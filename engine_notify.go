package goAccount

import (
	"context"
	"crypto/rand"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/internal/flows"
	"github.com/MrEthical07/goAccount/notify"
)

// link returns BaseURL+path with the token as the only query parameter.
func (e *Engine) link(path, token string) string {
	return strings.TrimRight(e.config.Notification.BaseURL, "/") + path + "?token=" + url.QueryEscape(token)
}

func (e *Engine) sendActivation(ctx context.Context, user flows.User, token string) error {
	return e.send(ctx, notify.KindActivation, user, e.link(e.config.Notification.ActivationPath, token), e.config.Tokens.ActivationTTL)
}

func (e *Engine) sendReset(ctx context.Context, user flows.User, token string) error {
	return e.send(ctx, notify.KindPasswordReset, user, e.link(e.config.Notification.ResetPath, token), e.config.Tokens.ResetTTL)
}

func (e *Engine) send(ctx context.Context, kind notify.Kind, user flows.User, link string, ttl time.Duration) error {
	msg, err := e.templates.Render(kind, user.Email, notify.Data{
		Username:  user.Username,
		Link:      link,
		ExpiresIn: ttl,
	})
	if err != nil {
		return err
	}
	msg.From = e.config.Notification.From
	return e.notifier.Send(ctx, msg)
}

// sleepEnumerationDelay pauses for a random duration in the configured range
// so a miss costs about as long as a store write.
func (e *Engine) sleepEnumerationDelay(ctx context.Context) error {
	lo := e.config.PasswordReset.EnumerationDelayMin
	hi := e.config.PasswordReset.EnumerationDelayMax
	if hi <= 0 {
		return nil
	}

	d := lo
	if span := int64(hi - lo); span > 0 {
		n, err := rand.Int(rand.Reader, big.NewInt(span+1))
		if err == nil {
			d += time.Duration(n.Int64())
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
