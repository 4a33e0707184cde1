package chat

import (
	"sync"
	"time"
)

// History is the external collaborator behind previous-session loading.
type History interface {
	Load(token string) ([]Message, bool)
	Save(token string, messages []Message)
}

const (
	DefaultHistoryRetention  = 24 * time.Hour
	DefaultHistoryMaxEntries = 1000
)

type snapshot struct {
	messages []Message
	savedAt  time.Time
	seq      uint64
}

// MemoryHistory keeps snapshots in process memory. A snapshot expires once
// it has not been saved for the retention window, and the oldest snapshots
// are evicted when more than maxEntries are held.
type MemoryHistory struct {
	retention  time.Duration
	maxEntries int
	now        func() time.Time

	mu        sync.Mutex
	snapshots map[string]snapshot
	seq       uint64
}

// NewMemoryHistory builds a bounded history. Non-positive limits fall back
// to the defaults.
func NewMemoryHistory(retention time.Duration, maxEntries int) *MemoryHistory {
	if retention <= 0 {
		retention = DefaultHistoryRetention
	}
	if maxEntries <= 0 {
		maxEntries = DefaultHistoryMaxEntries
	}
	return &MemoryHistory{
		retention:  retention,
		maxEntries: maxEntries,
		now:        time.Now,
		snapshots:  make(map[string]snapshot),
	}
}

func (h *MemoryHistory) Load(token string) ([]Message, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.snapshots[token]
	if !ok {
		return nil, false
	}
	if h.expired(s, h.now()) {
		delete(h.snapshots, token)
		return nil, false
	}
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out, true
}

func (h *MemoryHistory) Save(token string, messages []Message) {
	saved := make([]Message, len(messages))
	copy(saved, messages)

	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	h.seq++
	h.snapshots[token] = snapshot{messages: saved, savedAt: now, seq: h.seq}
	h.pruneLocked(now)
}

func (h *MemoryHistory) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.snapshots)
}

func (h *MemoryHistory) expired(s snapshot, now time.Time) bool {
	return now.Sub(s.savedAt) > h.retention
}

// pruneLocked must be called with h.mu held.
func (h *MemoryHistory) pruneLocked(now time.Time) {
	for token, s := range h.snapshots {
		if h.expired(s, now) {
			delete(h.snapshots, token)
		}
	}
	for len(h.snapshots) > h.maxEntries {
		var oldest string
		var oldestSeq uint64
		for token, s := range h.snapshots {
			if oldest == "" || s.seq < oldestSeq {
				oldest, oldestSeq = token, s.seq
			}
		}
		delete(h.snapshots, oldest)
	}
}
