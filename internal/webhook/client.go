package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	DefaultChatInputKey = "chatInput"
	DefaultSessionKey   = "sessionId"
	DefaultTimeout      = 120 * time.Second

	userIDField = "userId"
	fileField   = "file"

	// FallbackReply is used when a successful response carries no text.
	FallbackReply = "Üzgünüm, yanıt alamadım."
)

// Config describes the automation webhook. URL is used as-is.
type Config struct {
	URL          string
	Method       string
	Headers      map[string]string
	ChatInputKey string
	SessionKey   string
	Timeout      time.Duration
}

type Client struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	if cfg.ChatInputKey == "" {
		cfg.ChatInputKey = DefaultChatInputKey
	}
	if cfg.SessionKey == "" {
		cfg.SessionKey = DefaultSessionKey
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// File is the binary payload attached to a turn.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Turn is everything sent for one user submission.
type Turn struct {
	Text         string
	SessionToken string
	UserID       string
	File         *File
}

// Reply is the interpreted webhook answer.
type Reply struct {
	Text       string
	Status     string
	Timestamp  string
	SessionID  string
	StatusCode int
}

type response struct {
	Message   string `json:"message"`
	Output    string `json:"output"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	SessionID string `json:"sessionId"`
}

// Send performs exactly one request for turn. Every error it returns is a
// *Failure.
func (c *Client) Send(ctx context.Context, turn Turn) (Reply, error) {
	body, contentType, err := c.encode(turn)
	if err != nil {
		return Reply{}, &Failure{Kind: KindNetwork, Err: fmt.Errorf("encode form: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, c.cfg.Method, c.cfg.URL, body)
	if err != nil {
		return Reply{}, &Failure{Kind: KindNetwork, Err: fmt.Errorf("create request: %w", err)}
	}
	for k, v := range c.cfg.Headers {
		if strings.EqualFold(k, "Content-Type") {
			continue
		}
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return Reply{}, &Failure{Kind: KindNetwork, Err: fmt.Errorf("webhook call: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, &Failure{Kind: KindNetwork, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Reply{}, &Failure{
			Kind:       KindTransport,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("http status %d", resp.StatusCode),
		}
	}

	var parsed response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Reply{}, &Failure{Kind: KindNetwork, StatusCode: resp.StatusCode, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	text := parsed.Message
	if text == "" {
		text = parsed.Output
	}
	if text == "" {
		text = FallbackReply
	}

	c.logger.Debug("webhook replied", "session", turn.SessionToken, "status_code", resp.StatusCode)
	return Reply{
		Text:       text,
		Status:     parsed.Status,
		Timestamp:  parsed.Timestamp,
		SessionID:  parsed.SessionID,
		StatusCode: resp.StatusCode,
	}, nil
}

func (c *Client) encode(turn Turn) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField(c.cfg.ChatInputKey, turn.Text); err != nil {
		return nil, "", err
	}
	if err := w.WriteField(c.cfg.SessionKey, turn.SessionToken); err != nil {
		return nil, "", err
	}
	if turn.UserID != "" {
		if err := w.WriteField(userIDField, turn.UserID); err != nil {
			return nil, "", err
		}
	}
	if turn.File != nil {
		part, err := w.CreatePart(filePartHeader(turn.File))
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(turn.File.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func filePartHeader(f *File) textproto.MIMEHeader {
	contentType := f.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fileField, quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", contentType)
	return h
}
