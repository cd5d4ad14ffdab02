package ws

import (
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type testSubscriber struct {
	mu       sync.Mutex
	payloads []string
	fail     bool
	closed   bool
}

func (s *testSubscriber) Send(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("boom")
	}
	s.payloads = append(s.payloads, string(p))
	return nil
}

func (s *testSubscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *testSubscriber) snapshot() ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.payloads...), s.closed
}

func TestHubRoutesByInspection(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	a := &testSubscriber{}
	b := &testSubscriber{}
	hub.Register("insp-a", a)
	hub.Register("insp-b", b)

	hub.Broadcast("insp-a", []byte("one"))
	hub.Broadcast("insp-a", []byte("two"))
	hub.Broadcast("insp-b", []byte("other"))

	waitFor(t, time.Second, func() bool {
		got, _ := a.snapshot()
		return len(got) == 2
	})
	got, _ := a.snapshot()
	if got[0] != "one" || got[1] != "two" {
		t.Fatalf("unexpected order %v", got)
	}
	waitFor(t, time.Second, func() bool {
		got, _ := b.snapshot()
		return len(got) == 1
	})
}

func TestHubDropsFailingSubscriber(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	bad := &testSubscriber{fail: true}
	hub.Register("insp", bad)
	waitFor(t, time.Second, func() bool { return hub.Subscribers("insp") == 1 })

	hub.Broadcast("insp", []byte("x"))
	waitFor(t, time.Second, func() bool { return hub.Subscribers("insp") == 0 })
	if _, closed := bad.snapshot(); !closed {
		t.Fatal("expected failing subscriber closed")
	}
}

func TestHubDropAndClose(t *testing.T) {
	hub := NewHub()
	a := &testSubscriber{}
	b := &testSubscriber{}
	hub.Register("insp-a", a)
	hub.Register("insp-b", b)

	hub.Drop("insp-a")
	waitFor(t, time.Second, func() bool { return hub.Subscribers("insp-a") == 0 })
	if _, closed := a.snapshot(); !closed {
		t.Fatal("expected dropped subscriber closed")
	}

	hub.Close()
	if _, closed := b.snapshot(); !closed {
		t.Fatal("expected remaining subscriber closed on hub close")
	}
	hub.Broadcast("insp-b", []byte("late"))
}

func TestSSEClientFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	client := NewSSEClient(rec, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := client.Send([]byte(`{"type":"snapshot"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := client.Heartbeat(); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "data: {\"type\":\"snapshot\"}\n\n") || !strings.Contains(body, ": ping\n\n") {
		t.Fatalf("unexpected frames %q", body)
	}

	client.Close()
	select {
	case <-client.Done():
	default:
		t.Fatal("done channel not closed")
	}
	if err := client.Send([]byte("x")); err != io.EOF {
		t.Fatalf("expected EOF after close, got %v", err)
	}
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("gone") }
func (brokenWriter) Flush()                    {}

func TestSSEClientClosesOnWriteError(t *testing.T) {
	w := &brokenWriter{}
	client := NewSSEClient(w, w, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := client.Send([]byte("x")); err == nil {
		t.Fatal("expected write error")
	}
	select {
	case <-client.Done():
	default:
		t.Fatal("stream not marked closed after write error")
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
