package chat

import (
	"sync"
	"time"
)

// Store is the ordered, append-only conversation log. Reset is the only
// operation that removes messages.
type Store struct {
	mu       sync.RWMutex
	messages []Message
	now      func() time.Time
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{now: now}
}

// Append adds m to the end of the log.
func (s *Store) Append(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

// Reset replaces the log with one bot message per seed text.
func (s *Store) Reset(seed []string) {
	at := s.now()
	fresh := make([]Message, 0, len(seed))
	for _, text := range seed {
		fresh = append(fresh, newBotMessage(text, at))
	}

	s.mu.Lock()
	s.messages = fresh
	s.mu.Unlock()
}

// Snapshot returns a copy of the log in order.
func (s *Store) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Restore replaces the log with a previously taken snapshot.
func (s *Store) Restore(messages []Message) {
	restored := make([]Message, len(messages))
	copy(restored, messages)

	s.mu.Lock()
	s.messages = restored
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
