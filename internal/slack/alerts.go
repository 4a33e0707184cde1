package slack

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/opsdesk/internal/chat"
)

// Alerts relays webhook failures of chat sessions to an ops channel.
// Validation rejections stay with the user and are never relayed.
type Alerts struct {
	poster *Poster
	queue  chan chat.Notification
	logger *slog.Logger
}

func NewAlerts(poster *Poster, buffer int, logger *slog.Logger) *Alerts {
	if buffer <= 0 {
		buffer = 64
	}
	return &Alerts{
		poster: poster,
		queue:  make(chan chat.Notification, buffer),
		logger: logger,
	}
}

// Notify queues n without blocking the turn. A full queue drops the alert.
func (a *Alerts) Notify(n chat.Notification) {
	if n.Kind == chat.NotifyValidationRejected {
		return
	}
	select {
	case a.queue <- n:
	default:
		a.logger.Warn("slack alert dropped, queue full", "session", n.SessionToken, "kind", n.Kind)
	}
}

// Run posts queued alerts until ctx is done.
func (a *Alerts) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-a.queue:
			ts, err := a.poster.Post(ctx, formatAlert(n))
			if err != nil {
				a.logger.Warn("slack alert failed", "session", n.SessionToken, "error", err)
				continue
			}
			a.logger.Info("posted chat alert to slack", "ts", ts, "session", n.SessionToken)
		}
	}
}

func formatAlert(n chat.Notification) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Chatbot %s*\n", n.Kind)
	fmt.Fprintf(&sb, "*Session:* `%s`\n", n.SessionToken)
	if !n.At.IsZero() {
		fmt.Fprintf(&sb, "*At:* %s\n", n.At.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(&sb, "%s: %s", n.Title, n.Description)
	return sb.String()
}
