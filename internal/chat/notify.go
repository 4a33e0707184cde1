package chat

import "time"

type NotificationKind string

const (
	NotifyValidationRejected NotificationKind = "validation-rejected"
	NotifyTransportError     NotificationKind = "transport-error"
	NotifyNetworkError       NotificationKind = "network-error"
)

// Notification is a transient user-facing message, shown apart from the
// conversation log.
type Notification struct {
	SessionToken string           `json:"session_token"`
	Kind         NotificationKind `json:"kind"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	At           time.Time        `json:"at"`
}

type Notifier interface {
	Notify(n Notification)
}

// TurnEvent summarizes one applied turn.
type TurnEvent struct {
	SessionToken string        `json:"session_token"`
	Outcome      string        `json:"outcome"`
	FailureKind  string        `json:"failure_kind,omitempty"`
	StatusCode   int           `json:"status_code,omitempty"`
	HasFile      bool          `json:"has_file"`
	Latency      time.Duration `json:"latency"`
	Stale        bool          `json:"stale,omitempty"`
}

const (
	OutcomeReply    = "reply"
	OutcomeFallback = "fallback"
)

type TurnObserver interface {
	TurnCompleted(evt TurnEvent)
}

// Notifiers fans a notification out to every member.
type Notifiers []Notifier

func (ns Notifiers) Notify(n Notification) {
	for _, nt := range ns {
		if nt != nil {
			nt.Notify(n)
		}
	}
}

// TurnObservers fans a turn event out to every member.
type TurnObservers []TurnObserver

func (to TurnObservers) TurnCompleted(evt TurnEvent) {
	for _, obs := range to {
		if obs != nil {
			obs.TurnCompleted(evt)
		}
	}
}
