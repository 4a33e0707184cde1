package chat

import (
	"time"

	"github.com/google/uuid"
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Attachment describes a file carried by a user message. AccessURL is empty
// once the bytes are gone, as for restored conversations.
type Attachment struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MimeType  string `json:"mime_type"`
	Size      int64  `json:"size"`
	AccessURL string `json:"access_url,omitempty"`
}

// Message is one entry of the conversation log. Messages are immutable once
// appended; ID is for keying only and never drives ordering.
type Message struct {
	ID         string      `json:"id"`
	Text       string      `json:"text"`
	Sender     Sender      `json:"sender"`
	Timestamp  time.Time   `json:"timestamp"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func newBotMessage(text string, at time.Time) Message {
	return Message{
		ID:        newMessageID(),
		Text:      text,
		Sender:    SenderBot,
		Timestamp: at,
	}
}

// FormatTime renders a message timestamp the way the widget shows it:
// 24-hour clock for Turkish, 12-hour clock otherwise.
func FormatTime(t time.Time, language string) string {
	if language == "tr" {
		return t.Format("15:04")
	}
	return t.Format("03:04 PM")
}
