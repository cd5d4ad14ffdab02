package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewNormalisesBaseURL(t *testing.T) {
	c, err := New("localhost:4000/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.baseURL != "http://localhost:4000" {
		t.Fatalf("unexpected base url %q", c.baseURL)
	}
}

func TestInspectSendsTokenAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inspections" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id":"insp-1","target":%q,"status":"ready","live":true,"tick_interval_ms":2500,"report":{"summary":"ok","keyStats":{"threatsDetected":4}}}`, body["target"])
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	got, err := c.Inspect(context.Background(), "tok", "kromedia.example")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if got.ID != "insp-1" || got.Target != "kromedia.example" || got.TickIntervalMs != 2500 {
		t.Fatalf("unexpected inspection %+v", got)
	}
	if got.Report == nil || got.Report.KeyStats.ThreatsDetected != 4 {
		t.Fatalf("unexpected report %+v", got.Report)
	}
}

func TestAPIErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"NEO core is overloaded."}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	_, err := c.Inspect(context.Background(), "tok", "x")
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Message != "NEO core is overloaded." {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestWatchSkipsStaleFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, seq := range []int{1, 1, 2, 3} {
			fmt.Fprintf(w, "data: {\"type\":\"snapshot\",\"inspection_id\":\"insp-1\",\"seq\":%d,\"data\":{}}\n\n", seq)
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var seqs []uint64
	err := c.Watch(ctx, "tok", "insp-1", func(env Envelope) error {
		seqs = append(seqs, env.Seq)
		return nil
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if len(seqs) != 3 || seqs[0] != 1 || seqs[2] != 3 {
		t.Fatalf("unexpected sequence %v", seqs)
	}
}

func TestSetIntervalSendsMilliseconds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int64
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.Method != http.MethodPut || r.URL.Path != "/inspections/insp-1/interval" || body["interval_ms"] != 4000 {
			t.Errorf("unexpected request %s %s %v", r.Method, r.URL.Path, body)
		}
		_, _ = w.Write([]byte(`{"live":true,"tick_interval_ms":4000}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	state, err := c.SetInterval(context.Background(), "tok", "insp-1", 4*time.Second)
	if err != nil {
		t.Fatalf("SetInterval: %v", err)
	}
	if state.TickIntervalMs != 4000 {
		t.Fatalf("unexpected state %+v", state)
	}
}
