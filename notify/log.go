package notify

import (
	"context"

	"github.com/MrEthical07/goAccount/internal/logging"
)

// LogSender writes messages to a logger instead of mailing them. It is the
// default when no SMTP relay is configured.
type LogSender struct {
	log logging.Logger
}

func NewLogSender(log logging.Logger) *LogSender {
	return &LogSender{log: log.With("component", "notify")}
}

func (s *LogSender) Send(ctx context.Context, m Message) error {
	s.log.Info(ctx, "email not sent, no smtp relay configured",
		"kind", string(m.Kind),
		"to", m.To,
		"subject", m.Subject,
		"link", m.Link,
	)
	return nil
}
