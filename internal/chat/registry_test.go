package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/opsdesk/internal/webhook"
)

func newTestRegistry(ttl time.Duration) *Registry {
	tr := &fakeTransport{reply: webhook.Reply{Text: "ok"}}
	return NewRegistry(func(resume string) *Orchestrator {
		return New(Options{Config: Config{}, Transport: tr, Logger: discardLogger(), ResumeToken: resume})
	}, ttl, discardLogger())
}

func TestRegistry_OpenGetClose(t *testing.T) {
	r := newTestRegistry(0)

	o := r.Open("")
	got, err := r.Get(o.Token())
	if err != nil || got != o {
		t.Fatalf("expected to get opened session, got %v / %v", got, err)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 session, got %d", r.Len())
	}

	if err := r.Close(o.Token()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := r.Get(o.Token()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := o.Submit(context.Background(), "hi"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected closed orchestrator, got %v", err)
	}
	if err := r.Close("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRegistry_SessionsAreIndependent(t *testing.T) {
	r := newTestRegistry(0)
	a := r.Open("")
	b := r.Open("")
	if a.Token() == b.Token() {
		t.Fatal("expected distinct session tokens")
	}

	if _, err := a.Submit(context.Background(), "only a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b.State().Messages) != 1 {
		t.Errorf("session b should be untouched, got %d messages", len(b.State().Messages))
	}
}

func TestRegistry_SweepEvictsIdle(t *testing.T) {
	r := newTestRegistry(time.Minute)
	now := time.Now()
	r.now = func() time.Time { return now.Add(2 * time.Minute) }

	o := r.Open("")
	if n := r.Sweep(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if _, err := r.Get(o.Token()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected evicted session to be gone, got %v", err)
	}
}

func TestRegistry_SweepKeepsActive(t *testing.T) {
	r := newTestRegistry(time.Hour)
	r.Open("")
	if n := r.Sweep(); n != 0 {
		t.Errorf("expected no eviction, got %d", n)
	}
}

type gaugeRecorder struct {
	values []int
}

func (g *gaugeRecorder) SetOpenSessions(n int) { g.values = append(g.values, n) }

func TestRegistry_ReportsOpenSessions(t *testing.T) {
	r := newTestRegistry(0)
	g := &gaugeRecorder{}
	r.ReportTo(g)

	a := r.Open("")
	r.Open("")
	if err := r.Close(a.Token()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	want := []int{0, 1, 2, 1}
	if len(g.values) != len(want) {
		t.Fatalf("expected gauge values %v, got %v", want, g.values)
	}
	for i := range want {
		if g.values[i] != want[i] {
			t.Errorf("position %d: expected %d, got %d", i, want[i], g.values[i])
		}
	}
}

func TestRegistry_GaugeMatchesConcurrentChanges(t *testing.T) {
	r := newTestRegistry(0)
	g := &gaugeRecorder{}
	r.ReportTo(g)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := r.Open("")
			_ = r.Close(o.Token())
		}()
	}
	wg.Wait()

	if last := g.values[len(g.values)-1]; last != r.Len() || last != 0 {
		t.Errorf("expected final gauge value 0, got %d (len %d)", last, r.Len())
	}
}

func newHistoryRegistry(history History, tr Transport) *Registry {
	cfg := Config{InitialMessages: []string{"Hello"}, LoadPreviousSession: true, AllowFileUploads: true}
	return NewRegistry(func(resume string) *Orchestrator {
		return New(Options{Config: cfg, Transport: tr, Logger: discardLogger(), History: history, ResumeToken: resume})
	}, time.Minute, discardLogger())
}

func TestRegistry_HistoryStaysBounded(t *testing.T) {
	history := NewMemoryHistory(time.Hour, 10)
	r := newHistoryRegistry(history, &fakeTransport{reply: webhook.Reply{Text: "ok"}})

	var last string
	for i := 0; i < 100; i++ {
		o := r.Open("")
		if _, err := o.Submit(context.Background(), "hi"); err != nil {
			t.Fatalf("cycle %d: unexpected error: %v", i, err)
		}
		last = o.Token()
		if err := r.Close(o.Token()); err != nil {
			t.Fatalf("cycle %d: Close failed: %v", i, err)
		}
	}

	if r.Len() != 0 {
		t.Errorf("expected no open sessions, got %d", r.Len())
	}
	if n := history.size(); n != 10 {
		t.Errorf("expected 10 retained snapshots, got %d", n)
	}
	if _, ok := history.Load(last); !ok {
		t.Error("expected the most recent conversation to stay resumable")
	}
}

func TestRegistry_ResumeOfLiveSessionReturnsIt(t *testing.T) {
	history := NewMemoryHistory(time.Hour, 10)
	r := newHistoryRegistry(history, &fakeTransport{reply: webhook.Reply{Text: "ok"}})

	o := r.Open("")
	if _, err := o.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again := r.Open(o.Token())
	if again != o {
		t.Fatal("expected the live orchestrator to be returned")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 open session, got %d", r.Len())
	}
	if _, err := o.Submit(context.Background(), "still here"); err != nil {
		t.Errorf("expected live session to keep working, got %v", err)
	}
}

func TestRegistry_ResumeDropsAttachmentLinks(t *testing.T) {
	history := NewMemoryHistory(time.Hour, 10)
	r := newHistoryRegistry(history, &fakeTransport{reply: webhook.Reply{Text: "ok"}})

	o := r.Open("")
	if err := o.StageFile(File{Name: "a.png", MimeType: "image/png", Size: 3, Data: []byte("png")}); err != nil {
		t.Fatalf("StageFile failed: %v", err)
	}
	res, err := o.Submit(context.Background(), "look")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.User.Attachment == nil || res.User.Attachment.AccessURL == "" {
		t.Fatalf("expected live attachment link, got %+v", res.User.Attachment)
	}
	if err := r.Close(o.Token()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	resumed := r.Open(o.Token())
	var found bool
	for _, m := range resumed.State().Messages {
		if m.Attachment == nil {
			continue
		}
		found = true
		if m.Attachment.AccessURL != "" {
			t.Errorf("expected no access url after resume, got %q", m.Attachment.AccessURL)
		}
		if m.Attachment.Name != "a.png" {
			t.Errorf("expected attachment metadata kept, got %+v", m.Attachment)
		}
	}
	if !found {
		t.Error("expected restored message with attachment")
	}
}
