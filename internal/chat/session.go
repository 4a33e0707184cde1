package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NewSessionToken returns the opaque correlation token for one conversation.
func NewSessionToken() string {
	return uuid.NewString()
}

type userIDKey struct{}

// WithUserID makes Submit send userID instead of the configured one.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func userIDFrom(ctx context.Context, fallback string) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok && id != "" {
		return id
	}
	return fallback
}

type Mode string

const (
	ModeWindow     Mode = "window"
	ModeFullscreen Mode = "fullscreen"
)

const (
	// ApologyReply is appended when a turn fails at the webhook boundary.
	ApologyReply = "Üzgünüm, şu anda bir teknik sorun yaşıyorum. Lütfen daha sonra tekrar deneyin."

	DefaultReplyDelay = time.Second

	failureTitle       = "Bağlantı Hatası"
	failureDescription = "Chatbot servisine bağlanılamadı."
	fileOnlyTextFormat = "[File: %s]"
)

var defaultWelcome = map[string]string{
	"tr": "Merhaba! Size nasıl yardımcı olabilirim?",
	"en": "Hello! How can I help you?",
}

// Config is the per-widget behavior of an orchestrator.
type Config struct {
	InitialMessages     []string
	AllowFileUploads    bool
	AllowedMimeTypes    string
	MaxFileBytes        int64
	UserID              string
	Language            string
	Mode                Mode
	ReplyDelay          time.Duration
	LoadPreviousSession bool
	// DropStaleReplies discards replies of turns that were in flight when
	// the conversation was cleared or closed.
	DropStaleReplies bool
}

// Seed returns the welcome messages used by Clear and new sessions.
func (c Config) Seed() []string {
	if len(c.InitialMessages) > 0 {
		return c.InitialMessages
	}
	if text, ok := defaultWelcome[c.Language]; ok {
		return []string{text}
	}
	return []string{defaultWelcome["en"]}
}
