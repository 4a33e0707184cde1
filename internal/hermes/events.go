package hermes

import (
	"log/slog"

	"github.com/MikeSquared-Agency/opsdesk/internal/chat"
)

const (
	// SubjectChatNotification carries every user-facing notification a chat
	// session raises.
	SubjectChatNotification = "swarm.opsdesk.chat.notification"
	// SubjectChatTurn carries one summary per resolved turn.
	SubjectChatTurn = "swarm.opsdesk.chat.turn"
)

// Publisher is the part of Client that ChatEvents needs.
type Publisher interface {
	Publish(subject string, data any) error
}

// ChatEvents forwards chat notifications and turn summaries to the bus.
// Publish failures are logged and never reach the conversation.
type ChatEvents struct {
	pub    Publisher
	logger *slog.Logger
}

func NewChatEvents(pub Publisher, logger *slog.Logger) *ChatEvents {
	return &ChatEvents{pub: pub, logger: logger}
}

func (e *ChatEvents) Notify(n chat.Notification) {
	if err := e.pub.Publish(SubjectChatNotification, n); err != nil {
		e.logger.Warn("publish chat notification failed", "session", n.SessionToken, "kind", n.Kind, "error", err)
	}
}

func (e *ChatEvents) TurnCompleted(evt chat.TurnEvent) {
	if err := e.pub.Publish(SubjectChatTurn, evt); err != nil {
		e.logger.Warn("publish chat turn failed", "session", evt.SessionToken, "outcome", evt.Outcome, "error", err)
	}
}
