package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("chat session not found")

// SessionGauge receives the number of open sessions after every change.
type SessionGauge interface {
	SetOpenSessions(n int)
}

// Factory builds the orchestrator for a newly opened widget instance.
type Factory func(resumeToken string) *Orchestrator

// Registry owns one orchestrator per open widget instance.
type Registry struct {
	factory Factory
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
	gauge   SessionGauge

	mu       sync.Mutex
	sessions map[string]*Orchestrator
}

func NewRegistry(factory Factory, ttl time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factory:  factory,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Orchestrator),
	}
}

// ReportTo makes the registry publish its size to g.
func (r *Registry) ReportTo(g SessionGauge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauge = g
	r.reportLocked()
}

// reportLocked must be called with r.mu held.
func (r *Registry) reportLocked() {
	if r.gauge != nil {
		r.gauge.SetOpenSessions(len(r.sessions))
	}
}

// Open creates a conversation. resumeToken may name an earlier one; when
// that conversation is still open it is returned as is.
func (r *Registry) Open(resumeToken string) *Orchestrator {
	if resumeToken != "" {
		if live, err := r.Get(resumeToken); err == nil {
			r.logger.Info("chat session reattached", "session", resumeToken)
			return live
		}
	}

	o := r.factory(resumeToken)

	r.mu.Lock()
	if live, ok := r.sessions[o.Token()]; ok {
		r.mu.Unlock()
		o.Close()
		return live
	}
	r.sessions[o.Token()] = o
	n := len(r.sessions)
	r.reportLocked()
	r.mu.Unlock()

	r.logger.Info("chat session opened", "session", o.Token(), "open_sessions", n)
	return o
}

func (r *Registry) Get(token string) (*Orchestrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return o, nil
}

func (r *Registry) Close(token string) error {
	r.mu.Lock()
	o, ok := r.sessions[token]
	if ok {
		delete(r.sessions, token)
		r.reportLocked()
	}
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	o.Close()
	r.logger.Info("chat session closed", "session", token)
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were evicted. Sessions with a turn in flight are never evicted.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var evicted []*Orchestrator
	for token, o := range r.sessions {
		if o.Idle(cutoff) {
			evicted = append(evicted, o)
			delete(r.sessions, token)
		}
	}
	if len(evicted) > 0 {
		r.reportLocked()
	}
	r.mu.Unlock()

	for _, o := range evicted {
		o.Close()
		r.logger.Info("idle chat session evicted", "session", o.Token())
	}
	return len(evicted)
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
