package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/opsdesk/internal/webhook"
)

var (
	ErrTurnInFlight       = errors.New("a turn is already in flight")
	ErrEmptySubmission    = errors.New("nothing to submit")
	ErrSessionClosed      = errors.New("session closed")
	ErrUploadsDisabled    = errors.New("file uploads are disabled")
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// Transport sends one turn to the automation webhook.
type Transport interface {
	Send(ctx context.Context, turn webhook.Turn) (webhook.Reply, error)
}

type Options struct {
	Config    Config
	Transport Transport
	Logger    *slog.Logger
	Notifier  Notifier
	Observer  TurnObserver
	History   History
	// ResumeToken continues an earlier conversation when History holds it
	// and previous-session loading is enabled.
	ResumeToken string
	// AttachmentURL builds the access URL of a stored attachment.
	AttachmentURL func(sessionToken, attachmentID string) string
	Now           func() time.Time
	Sleep         func(time.Duration)
}

// StagedFile is the visible part of a file waiting to be submitted.
type StagedFile struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// View is the rendering-agnostic state shared by every presentation adapter.
type View struct {
	SessionToken string      `json:"session_token"`
	Messages     []Message   `json:"messages"`
	Loading      bool        `json:"loading"`
	Typing       bool        `json:"typing"`
	PendingFile  *StagedFile `json:"pending_file,omitempty"`
	Mode         Mode        `json:"mode"`
	Language     string      `json:"language"`
}

// TurnResult is what one accepted submission produced.
type TurnResult struct {
	User         Message          `json:"user"`
	Bot          Message          `json:"bot"`
	Failure      *webhook.Failure `json:"-"`
	Notification *Notification    `json:"notification,omitempty"`
	Stale        bool             `json:"stale,omitempty"`
}

// Orchestrator drives one conversation: Idle -> Sending -> Idle. Failures
// fold back into an apology message so the conversation never stalls.
type Orchestrator struct {
	cfg           Config
	transport     Transport
	store         *Store
	logger        *slog.Logger
	notifier      Notifier
	observer      TurnObserver
	history       History
	attachmentURL func(sessionToken, attachmentID string) string
	now           func() time.Time
	sleep         func(time.Duration)

	token string

	mu          sync.Mutex
	loading     bool
	typing      bool
	pending     *File
	generation  uint64
	closed      bool
	attachments map[string]File
	lastActive  time.Time
}

func New(opts Options) *Orchestrator {
	cfg := opts.Config
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeWindow
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = DefaultMaxFileBytes
	}

	o := &Orchestrator{
		cfg:           cfg,
		transport:     opts.Transport,
		logger:        opts.Logger,
		notifier:      opts.Notifier,
		observer:      opts.Observer,
		history:       opts.History,
		attachmentURL: opts.AttachmentURL,
		now:           opts.Now,
		sleep:         opts.Sleep,
		attachments:   make(map[string]File),
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.sleep == nil {
		o.sleep = time.Sleep
	}
	if o.attachmentURL == nil {
		o.attachmentURL = func(_, id string) string { return "attachment:" + id }
	}
	o.store = NewStore(o.now)
	o.lastActive = o.now()

	o.token = NewSessionToken()
	if !o.resume(opts.ResumeToken) {
		o.store.Reset(cfg.Seed())
	}
	return o
}

func (o *Orchestrator) resume(token string) bool {
	if token == "" || !o.cfg.LoadPreviousSession || o.history == nil {
		return false
	}
	msgs, ok := o.history.Load(token)
	if !ok {
		return false
	}
	for i, m := range msgs {
		if m.Attachment != nil {
			att := *m.Attachment
			att.AccessURL = ""
			msgs[i].Attachment = &att
		}
	}
	o.token = token
	o.store.Restore(msgs)
	o.logger.Info("previous session restored", "session", token, "messages", len(msgs))
	return true
}

// Token is the session token sent with every turn.
func (o *Orchestrator) Token() string { return o.token }

// StageFile validates f and makes it the file of the next submission.
// A rejected file is discarded together with anything staged before it.
func (o *Orchestrator) StageFile(f File) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrSessionClosed
	}
	o.lastActive = o.now()
	if !o.cfg.AllowFileUploads {
		o.mu.Unlock()
		return ErrUploadsDisabled
	}

	err := Validate(f, o.cfg.AllowedMimeTypes, o.cfg.MaxFileBytes)
	if err == nil {
		staged := f
		o.pending = &staged
		o.mu.Unlock()
		o.logger.Debug("file staged", "session", o.token, "name", f.Name, "mime", f.MimeType, "size", f.Size)
		return nil
	}
	o.pending = nil
	o.mu.Unlock()

	var rej *Rejection
	if errors.As(err, &rej) {
		o.logger.Info("file rejected", "session", o.token, "name", f.Name, "reason", string(rej.Reason))
		o.notify(Notification{
			SessionToken: o.token,
			Kind:         NotifyValidationRejected,
			Title:        rej.Title(),
			Description:  rej.Description(),
			At:           o.now(),
		})
	}
	return err
}

// RemoveFile empties the staged-file slot.
func (o *Orchestrator) RemoveFile() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = nil
	o.lastActive = o.now()
}

// Submit runs one turn. A submission while another turn is in flight is
// dropped with ErrTurnInFlight. Once sent, a turn always resolves: the
// caller's cancellation does not reach the webhook call. A user id set with
// WithUserID overrides the configured one.
func (o *Orchestrator) Submit(ctx context.Context, text string) (TurnResult, error) {
	text = strings.TrimSpace(text)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return TurnResult{}, ErrSessionClosed
	}
	if o.loading {
		o.mu.Unlock()
		o.logger.Debug("submission dropped, turn in flight", "session", o.token)
		return TurnResult{}, ErrTurnInFlight
	}
	if text == "" && o.pending == nil {
		o.mu.Unlock()
		return TurnResult{}, ErrEmptySubmission
	}

	file := o.pending
	o.pending = nil
	if text == "" {
		text = fmt.Sprintf(fileOnlyTextFormat, file.Name)
	}

	user := Message{
		ID:        newMessageID(),
		Text:      text,
		Sender:    SenderUser,
		Timestamp: o.now(),
	}
	if file != nil {
		att := o.keepAttachment(*file)
		user.Attachment = &att
	}
	o.store.Append(user)
	o.loading = true
	o.typing = true
	o.lastActive = o.now()
	gen := o.generation
	o.mu.Unlock()

	turn := webhook.Turn{
		Text:         text,
		SessionToken: o.token,
		UserID:       userIDFrom(ctx, o.cfg.UserID),
	}
	if file != nil {
		turn.File = &webhook.File{Name: file.Name, MimeType: file.MimeType, Data: file.Data}
	}

	start := o.now()
	reply, err := o.transport.Send(context.WithoutCancel(ctx), turn)
	latency := o.now().Sub(start)

	if o.cfg.ReplyDelay > 0 {
		o.sleep(o.cfg.ReplyDelay)
	}

	return o.finishTurn(gen, user, file != nil, reply, err, latency), nil
}

func (o *Orchestrator) finishTurn(gen uint64, user Message, hasFile bool, reply webhook.Reply, sendErr error, latency time.Duration) TurnResult {
	result := TurnResult{User: user}
	evt := TurnEvent{
		SessionToken: o.token,
		Outcome:      OutcomeReply,
		HasFile:      hasFile,
		Latency:      latency,
	}

	text := reply.Text
	if sendErr != nil {
		var failure *webhook.Failure
		if !errors.As(sendErr, &failure) {
			failure = &webhook.Failure{Kind: webhook.KindNetwork, Err: sendErr}
		}
		result.Failure = failure
		text = ApologyReply

		kind := NotifyNetworkError
		if failure.Kind == webhook.KindTransport {
			kind = NotifyTransportError
		}
		result.Notification = &Notification{
			SessionToken: o.token,
			Kind:         kind,
			Title:        failureTitle,
			Description:  failureDescription,
			At:           o.now(),
		}
		evt.Outcome = OutcomeFallback
		evt.FailureKind = string(failure.Kind)
		evt.StatusCode = failure.StatusCode
		o.logger.Error("chatbot turn failed", "session", o.token, "kind", string(failure.Kind), "status_code", failure.StatusCode, "error", sendErr)
	} else {
		evt.StatusCode = reply.StatusCode
	}

	o.mu.Lock()
	result.Bot = newBotMessage(text, o.now())
	result.Stale = o.cfg.DropStaleReplies && gen != o.generation
	if !result.Stale {
		o.store.Append(result.Bot)
	}
	o.typing = false
	o.loading = false
	o.lastActive = o.now()
	o.mu.Unlock()

	evt.Stale = result.Stale
	if result.Stale {
		o.logger.Warn("stale reply dropped", "session", o.token)
	} else {
		o.saveHistory()
	}
	if result.Notification != nil {
		o.notify(*result.Notification)
	}
	if o.observer != nil {
		o.observer.TurnCompleted(evt)
	}
	o.logger.Info("turn completed", "session", o.token, "outcome", evt.Outcome, "latency_ms", latency.Milliseconds())
	return result
}

// Clear re-seeds the conversation with the welcome messages. The session
// token is kept and an in-flight turn is not cancelled.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	o.generation++
	o.attachments = make(map[string]File)
	o.lastActive = o.now()
	o.store.Reset(o.cfg.Seed())
	o.mu.Unlock()

	o.saveHistory()
	o.logger.Info("conversation cleared", "session", o.token)
}

// Close ends the instance. Later calls fail with ErrSessionClosed.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.generation++
	o.pending = nil
	o.attachments = make(map[string]File)
}

// State returns the current view.
func (o *Orchestrator) State() View {
	o.mu.Lock()
	defer o.mu.Unlock()

	v := View{
		SessionToken: o.token,
		Messages:     o.store.Snapshot(),
		Loading:      o.loading,
		Typing:       o.typing,
		Mode:         o.cfg.Mode,
		Language:     o.cfg.Language,
	}
	if o.pending != nil {
		v.PendingFile = &StagedFile{Name: o.pending.Name, MimeType: o.pending.MimeType, Size: o.pending.Size}
	}
	return v
}

// Attachment returns the bytes behind a user message's access URL.
func (o *Orchestrator) Attachment(id string) (File, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	f, ok := o.attachments[id]
	if !ok {
		return File{}, ErrAttachmentNotFound
	}
	return f, nil
}

// Idle reports whether the conversation has no turn in flight and has not
// been touched since before cutoff.
func (o *Orchestrator) Idle(cutoff time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.loading && o.lastActive.Before(cutoff)
}

// keepAttachment must be called with o.mu held.
func (o *Orchestrator) keepAttachment(f File) Attachment {
	id := uuid.NewString()
	o.attachments[id] = f
	return Attachment{
		ID:        id,
		Name:      f.Name,
		MimeType:  f.MimeType,
		Size:      f.Size,
		AccessURL: o.attachmentURL(o.token, id),
	}
}

func (o *Orchestrator) saveHistory() {
	if o.history == nil || !o.cfg.LoadPreviousSession {
		return
	}
	o.history.Save(o.token, o.store.Snapshot())
}

func (o *Orchestrator) notify(n Notification) {
	if o.notifier != nil {
		o.notifier.Notify(n)
	}
}
