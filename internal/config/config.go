package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/MikeSquared-Agency/opsdesk/internal/chat"
	"github.com/MikeSquared-Agency/opsdesk/internal/webhook"
)

type Config struct {
	Port            int
	NatsURL         string
	NatsToken       string
	DatabaseURL     string
	DatabaseMigrate bool
	LogLevel        string
	APIToken        string
	JWTSecret       string
	SlackBotToken   string
	SlackChannel    string

	WebhookURL       string
	WebhookMethod    string
	WebhookHeaders   map[string]string
	WebhookTimeout   time.Duration
	ChatInputKey     string
	ChatSessionKey   string
	LoadPreviousChat bool
	DefaultLanguage  string
	InitialMessages  []string
	AllowFileUploads bool
	AllowedMimeTypes string
	MaxFileBytes     int64
	ChatUserID       string
	ChatMode         string
	ReplyDelay       time.Duration
	DropStaleReplies bool
	ChatSessionTTL   time.Duration
	HistoryRetention time.Duration
	HistoryMaxChats  int
}

// Load reads the environment, after merging a .env file when one exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:            envInt("OPSDESK_PORT", 8760),
		NatsURL:         envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:       envStr("NATS_TOKEN", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		DatabaseMigrate: envBool("DATABASE_MIGRATE", true),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		APIToken:        envStr("OPSDESK_API_TOKEN", ""),
		JWTSecret:       envStr("OPSDESK_JWT_SECRET", ""),
		SlackBotToken:   envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:    envStr("SLACK_ALERTS_CHANNEL", ""),

		WebhookURL:       envStr("CHAT_WEBHOOK_URL", ""),
		WebhookMethod:    strings.ToUpper(envStr("CHAT_WEBHOOK_METHOD", "POST")),
		WebhookHeaders:   envHeaders("CHAT_WEBHOOK_HEADERS"),
		WebhookTimeout:   envDuration("CHAT_WEBHOOK_TIMEOUT", webhook.DefaultTimeout),
		ChatInputKey:     envStr("CHAT_INPUT_KEY", webhook.DefaultChatInputKey),
		ChatSessionKey:   envStr("CHAT_SESSION_KEY", webhook.DefaultSessionKey),
		LoadPreviousChat: envBool("CHAT_LOAD_PREVIOUS_SESSION", true),
		DefaultLanguage:  envStr("CHAT_DEFAULT_LANGUAGE", "en"),
		InitialMessages:  envList("CHAT_INITIAL_MESSAGES", "|"),
		AllowFileUploads: envBool("CHAT_ALLOW_FILE_UPLOADS", false),
		AllowedMimeTypes: envStr("CHAT_ALLOWED_MIME_TYPES", ""),
		MaxFileBytes:     int64(envInt("CHAT_MAX_FILE_BYTES", int(chat.DefaultMaxFileBytes))),
		ChatUserID:       envStr("CHAT_USER_ID", "user"),
		ChatMode:         envStr("CHAT_MODE", string(chat.ModeWindow)),
		ReplyDelay:       envDuration("CHAT_REPLY_DELAY", chat.DefaultReplyDelay),
		DropStaleReplies: envBool("CHAT_DROP_STALE_REPLIES", false),
		ChatSessionTTL:   envDuration("CHAT_SESSION_TTL", 30*time.Minute),
		HistoryRetention: envDuration("CHAT_HISTORY_RETENTION", chat.DefaultHistoryRetention),
		HistoryMaxChats:  envInt("CHAT_HISTORY_MAX_SESSIONS", chat.DefaultHistoryMaxEntries),
	}
}

// Webhook returns the transport settings.
func (c Config) Webhook() webhook.Config {
	return webhook.Config{
		URL:          c.WebhookURL,
		Method:       c.WebhookMethod,
		Headers:      c.WebhookHeaders,
		ChatInputKey: c.ChatInputKey,
		SessionKey:   c.ChatSessionKey,
		Timeout:      c.WebhookTimeout,
	}
}

// Chat returns the per-widget orchestrator settings.
func (c Config) Chat() chat.Config {
	mode := chat.ModeWindow
	if c.ChatMode == string(chat.ModeFullscreen) {
		mode = chat.ModeFullscreen
	}
	return chat.Config{
		InitialMessages:     c.InitialMessages,
		AllowFileUploads:    c.AllowFileUploads,
		AllowedMimeTypes:    c.AllowedMimeTypes,
		MaxFileBytes:        c.MaxFileBytes,
		UserID:              c.ChatUserID,
		Language:            c.DefaultLanguage,
		Mode:                mode,
		ReplyDelay:          c.ReplyDelay,
		LoadPreviousSession: c.LoadPreviousChat,
		DropStaleReplies:    c.DropStaleReplies,
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key, sep string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// envHeaders parses a JSON object of header names to values.
func envHeaders(key string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var headers map[string]string
	if err := json.Unmarshal([]byte(v), &headers); err != nil {
		return nil
	}
	return headers
}
