package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"

	"github.com/kromedia/neo/internal/domain"
	"github.com/kromedia/neo/internal/neo"
	"github.com/kromedia/neo/internal/repository"
	"github.com/kromedia/neo/internal/service/auth"
	"github.com/kromedia/neo/internal/service/inspection"
	"github.com/kromedia/neo/internal/session"
	"github.com/kromedia/neo/internal/ws"
	"github.com/kromedia/neo/pkg/config"
	"github.com/kromedia/neo/pkg/crypto"
	jwtpkg "github.com/kromedia/neo/pkg/jwt"
)

type inspectionSvcStub struct {
	mu          sync.Mutex
	inspectErr  error
	refreshOK   bool
	live        *bool
	interval    time.Duration
	events      []domain.OscillatorEvent
	historyReq  bool
	closed      []string
	subscribers []ws.Subscriber
}

var stubCreated = time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)

func (s *inspectionSvcStub) Inspect(_ context.Context, operatorID, target string) (*domain.Inspection, error) {
	if s.inspectErr != nil {
		return nil, s.inspectErr
	}
	return &domain.Inspection{
		ID:           "insp-1",
		Target:       target,
		OperatorID:   operatorID,
		Status:       domain.InspectionReady,
		Live:         true,
		TickInterval: 2500 * time.Millisecond,
		Report:       &domain.Report{Summary: "ok"},
		CreatedAt:    stubCreated,
		UpdatedAt:    stubCreated,
	}, nil
}

func (s *inspectionSvcStub) Reinspect(ctx context.Context, id string) (*domain.Inspection, error) {
	return s.Inspect(ctx, "op-1", "kromedia.example")
}

func (s *inspectionSvcStub) Get(_ context.Context, id string) (*domain.Inspection, error) {
	if id != "insp-1" {
		return nil, repository.ErrNotFound
	}
	return &domain.Inspection{ID: id, Status: domain.InspectionReady, Report: &domain.Report{Summary: "ok"}}, nil
}

func (s *inspectionSvcStub) List(context.Context, int, int) ([]domain.Inspection, error) {
	return []domain.Inspection{{ID: "insp-1", Report: &domain.Report{Summary: "hidden"}}}, nil
}

func (s *inspectionSvcStub) Report(_ context.Context, id string) (*domain.Report, uint64, error) {
	if id != "insp-1" {
		return nil, 0, repository.ErrNotFound
	}
	return &domain.Report{Summary: "ok"}, 7, nil
}

func (s *inspectionSvcStub) State(id string) (session.State, error) {
	if id != "insp-1" {
		return session.State{}, inspection.ErrNotActive
	}
	return session.State{Live: true, Interval: time.Second, Loaded: true}, nil
}

func (s *inspectionSvcStub) SetLive(id string, live bool) (session.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = &live
	return session.State{Live: live, Interval: time.Second}, nil
}

func (s *inspectionSvcStub) SetInterval(id string, interval time.Duration) (session.State, error) {
	if interval <= 0 {
		return session.State{}, inspection.ErrInvalidInterval
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = interval
	return session.State{Live: true, Interval: interval}, nil
}

func (s *inspectionSvcStub) RequestIntegrityRefresh(string) (bool, error) {
	return s.refreshOK, nil
}

func (s *inspectionSvcStub) OscillatorEvents(_ context.Context, id string, history bool, limit int) ([]domain.OscillatorEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyReq = history
	return s.events, nil
}

func (s *inspectionSvcStub) Subscribe(id string, sub ws.Subscriber) error {
	if id != "insp-1" {
		return inspection.ErrNotActive
	}
	s.mu.Lock()
	s.subscribers = append(s.subscribers, sub)
	s.mu.Unlock()
	return sub.Send([]byte(`{"type":"snapshot","inspection_id":"insp-1","seq":1,"data":{}}`))
}

func (s *inspectionSvcStub) Unsubscribe(string, ws.Subscriber) {}

func (s *inspectionSvcStub) Close(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, id)
	return nil
}

type rateLimiterStub struct {
	mu      sync.Mutex
	calls   []string
	allowFn func(key string, limit int, window time.Duration) rateDecision
}

func (rl *rateLimiterStub) Allow(key string, limit int, window time.Duration) rateDecision {
	rl.mu.Lock()
	rl.calls = append(rl.calls, key)
	fn := rl.allowFn
	rl.mu.Unlock()
	if fn != nil {
		return fn(key, limit, window)
	}
	return rateDecision{allowed: true, count: 1, windowEnd: time.Now().Add(window)}
}

func (rl *rateLimiterStub) Close() {}

func setupRouter(t *testing.T, svc *inspectionSvcStub, limiter *rateLimiterStub) (*Router, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hash, err := crypto.HashAccessKey("open-sesame")
	if err != nil {
		t.Fatalf("hash key: %v", err)
	}
	authSvc := auth.New(logger, config.ServerConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Hour,
		OperatorKeyHash: string(hash),
	})
	router := NewRouter(logger, authSvc, svc, limiter, WithRegistry(prometheus.NewRegistry()), WithHeartbeat(20*time.Millisecond))
	tok, err := authSvc.IssueToken(context.Background(), "op-1", "open-sesame")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return router, tok.AccessToken
}

func do(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHealthzReportsDatabase(t *testing.T) {
	router, _ := setupRouter(t, &inspectionSvcStub{}, &rateLimiterStub{})
	router.dbHealth = func(context.Context) error { return errors.New("down") }

	rr := do(t, router, http.MethodGet, "/healthz", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["status"] != "degraded" {
		t.Fatalf("unexpected status %v", payload["status"])
	}
}

func TestTokenEndpoint(t *testing.T) {
	router, _ := setupRouter(t, &inspectionSvcStub{}, &rateLimiterStub{})

	rr := do(t, router, http.MethodPost, "/auth/token", "", `{"operator":"op-2","access_key":"open-sesame"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var payload struct {
		AccessToken string `json:"access_token"`
		OperatorID  string `json:"operator_id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.AccessToken == "" || payload.OperatorID != "op-2" {
		t.Fatalf("unexpected payload %+v", payload)
	}

	rr = do(t, router, http.MethodPost, "/auth/token", "", `{"operator":"op-2","access_key":"wrong"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestInspectionsRequireAuth(t *testing.T) {
	router, _ := setupRouter(t, &inspectionSvcStub{}, &rateLimiterStub{})
	rr := do(t, router, http.MethodGet, "/inspections", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	rr = do(t, router, http.MethodGet, "/inspections", "garbage", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rr.Code)
	}
}

func TestCreateInspection(t *testing.T) {
	router, token := setupRouter(t, &inspectionSvcStub{}, &rateLimiterStub{})
	rr := do(t, router, http.MethodPost, "/inspections", token, `{"target":"kromedia.example"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var view inspectionView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.OperatorID != "op-1" || view.Target != "kromedia.example" || view.TickIntervalMs != 2500 {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Report == nil || view.Report.Summary != "ok" {
		t.Fatalf("expected report in creation response")
	}
}

func TestCreateInspectionFetchFailure(t *testing.T) {
	svc := &inspectionSvcStub{inspectErr: &neo.FetchError{Target: "x", Err: neo.ErrOverloaded}}
	router, token := setupRouter(t, svc, &rateLimiterStub{})
	rr := do(t, router, http.MethodPost, "/inspections", token, `{"target":"x"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	if msg := parseError(t, rr.Body.String()); msg != neo.UserMessage(neo.ErrOverloaded) {
		t.Fatalf("unexpected message %q", msg)
	}

	svc.inspectErr = neo.ErrEmptyTarget
	rr = do(t, router, http.MethodPost, "/inspections", token, `{"target":""}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestListOmitsReports(t *testing.T) {
	router, token := setupRouter(t, &inspectionSvcStub{}, &rateLimiterStub{})
	rr := do(t, router, http.MethodGet, "/inspections?limit=5", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "hidden") {
		t.Fatalf("list leaked report body: %s", rr.Body.String())
	}
}

func TestInspectionSubroutes(t *testing.T) {
	svc := &inspectionSvcStub{events: []domain.OscillatorEvent{{ID: "ev-1", FibonacciSequenceStep: 3}}}
	router, token := setupRouter(t, svc, &rateLimiterStub{})

	if rr := do(t, router, http.MethodGet, "/inspections/missing", token, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing inspection, got %d", rr.Code)
	}
	if rr := do(t, router, http.MethodGet, "/inspections/insp-1/unknown", token, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown action, got %d", rr.Code)
	}

	rr := do(t, router, http.MethodGet, "/inspections/insp-1/report", token, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"seq":7`) {
		t.Fatalf("unexpected report response %d: %s", rr.Code, rr.Body.String())
	}

	if rr := do(t, router, http.MethodPut, "/inspections/insp-1/live", token, `{}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without live flag, got %d", rr.Code)
	}
	rr = do(t, router, http.MethodPut, "/inspections/insp-1/live", token, `{"live":false}`)
	if rr.Code != http.StatusOK || svc.live == nil || *svc.live {
		t.Fatalf("live toggle not applied: %d", rr.Code)
	}

	rr = do(t, router, http.MethodPut, "/inspections/insp-1/interval", token, `{"interval_ms":4000}`)
	if rr.Code != http.StatusOK || svc.interval != 4*time.Second {
		t.Fatalf("interval not applied: %d %s", rr.Code, svc.interval)
	}
	if rr := do(t, router, http.MethodPut, "/inspections/insp-1/interval", token, `{"interval_ms":0}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero interval, got %d", rr.Code)
	}

	rr = do(t, router, http.MethodPost, "/inspections/insp-1/integrity/refresh", token, "")
	if rr.Code != http.StatusAccepted || !strings.Contains(rr.Body.String(), `"accepted":false`) {
		t.Fatalf("unexpected refresh response %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(t, router, http.MethodGet, "/inspections/insp-1/oscillator-events?history=1", token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var events []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 1 || events[0]["alertFrequencyHz"] != float64(220) {
		t.Fatalf("unexpected events payload %v", events)
	}
	if !svc.historyReq {
		t.Fatal("expected history flag forwarded")
	}

	if rr := do(t, router, http.MethodDelete, "/inspections/insp-1", token, ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on close, got %d", rr.Code)
	}
	if len(svc.closed) != 1 {
		t.Fatalf("expected close forwarded, got %v", svc.closed)
	}
}

func TestRateLimitedCreate(t *testing.T) {
	limiter := &rateLimiterStub{}
	limiter.allowFn = func(key string, limit int, window time.Duration) rateDecision {
		return rateDecision{allowed: false, count: limit, windowEnd: time.Now().Add(window)}
	}
	router, token := setupRouter(t, &inspectionSvcStub{}, limiter)

	rr := do(t, router, http.MethodPost, "/inspections", token, `{"target":"x"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("unexpected remaining header %q", rr.Header().Get("X-RateLimit-Remaining"))
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After on limited response")
	}
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if len(limiter.calls) != 1 || !strings.HasSuffix(limiter.calls[0], "operator:op-1") {
		t.Fatalf("expected operator keyed limit, got %v", limiter.calls)
	}
}

func TestInspectionStreamEmitsSnapshotAndHeartbeat(t *testing.T) {
	router, _ := setupRouter(t, &inspectionSvcStub{}, &rateLimiterStub{})

	req := httptest.NewRequest(http.MethodGet, "/inspections/insp-1/stream", nil)
	ctx := context.WithValue(req.Context(), authContextKey{}, authInfo{OperatorID: "op-1", Via: tokenViaHeader})
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	req = req.WithContext(ctx)

	recorder := newStreamRecorder()
	done := make(chan struct{})
	go func() {
		router.handleInspectionStream(recorder, req, "insp-1")
		close(done)
	}()

	waitFor(t, 2*time.Second, func() bool {
		return strings.Contains(recorder.body(), ": ping")
	})
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream handler did not exit after context cancel")
	}

	if ct := recorder.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	payloads, err := extractSSEPayloads(recorder.body())
	if err != nil {
		t.Fatalf("extract sse payloads: %v", err)
	}
	if len(payloads) == 0 || payloads[0]["inspection_id"] != "insp-1" {
		t.Fatalf("unexpected payloads %v", payloads)
	}
}

func TestInspectionStreamRequiresFlusher(t *testing.T) {
	router, _ := setupRouter(t, &inspectionSvcStub{}, &rateLimiterStub{})
	req := httptest.NewRequest(http.MethodGet, "/inspections/insp-1/stream", nil)
	req = req.WithContext(context.WithValue(req.Context(), authContextKey{}, authInfo{OperatorID: "op-1", Via: tokenViaHeader}))

	w := newNoFlushRecorder()
	router.handleInspectionStream(w, req, "insp-1")
	if w.statusCode() != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.statusCode())
	}
	if msg := parseError(t, w.body()); msg != "streaming not supported" {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func TestInspectionStreamInactiveSession(t *testing.T) {
	router, _ := setupRouter(t, &inspectionSvcStub{}, &rateLimiterStub{})
	req := httptest.NewRequest(http.MethodGet, "/inspections/gone/stream", nil)
	req = req.WithContext(context.WithValue(req.Context(), authContextKey{}, authInfo{OperatorID: "op-1", Via: tokenViaHeader}))

	recorder := newStreamRecorder()
	router.handleInspectionStream(recorder, req, "gone")
	if recorder.statusCode() != http.StatusConflict {
		t.Fatalf("expected 409, got %d", recorder.statusCode())
	}
	if recorder.flushCount() != 0 {
		t.Fatal("expected no flushes for inactive session")
	}
}

func TestWebsocketRequiresInspectionID(t *testing.T) {
	router, token := setupRouter(t, &inspectionSvcStub{}, &rateLimiterStub{})
	rr := do(t, router, http.MethodGet, "/ws/inspections", token, "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := setupRouter(t, &inspectionSvcStub{}, &rateLimiterStub{})
	do(t, router, http.MethodGet, "/healthz", "", "")
	rr := do(t, router, http.MethodGet, "/metrics", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "neo_api_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}

func TestMemoryRateLimiterWindow(t *testing.T) {
	rl := NewMemoryRateLimiter().(*memoryRateLimiter)
	defer rl.Close()
	now := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 1; i <= 2; i++ {
		if d := rl.Allow("k", 2, time.Minute); !d.allowed || d.count != i {
			t.Fatalf("call %d: unexpected decision %+v", i, d)
		}
	}
	if d := rl.Allow("k", 2, time.Minute); d.allowed {
		t.Fatal("expected third call to be limited")
	}
	now = now.Add(2 * time.Minute)
	if d := rl.Allow("k", 2, time.Minute); !d.allowed || d.count != 1 {
		t.Fatalf("expected fresh window, got %+v", d)
	}
	rl.cleanup(now.Add(time.Hour))
	if len(rl.entries) != 0 {
		t.Fatalf("expected sweep to drop expired entries")
	}
}

func TestRedisRateLimiterFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	rl := &redisRateLimiter{client: client, closer: client.Close, timeout: 100 * time.Millisecond}
	defer rl.Close()
	if d := rl.Allow("k", 1, time.Minute); !d.allowed {
		t.Fatal("expected fail-open decision when redis is unreachable")
	}
}

func TestRateMetricKey(t *testing.T) {
	cases := map[string]string{
		"":              "unknown",
		"ip:127.0.0.1":  "ip",
		"operator:op-1": "operator",
		"plain":         "plain",
	}
	for in, want := range cases {
		if got := rateMetricKey(in); got != want {
			t.Fatalf("rateMetricKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerationBudgetSharedByInspectAndReinspect(t *testing.T) {
	limiter := &rateLimiterStub{}
	router, token := setupRouter(t, &inspectionSvcStub{}, limiter)

	do(t, router, http.MethodPost, "/inspections", token, `{"target":"kromedia.example"}`)
	do(t, router, http.MethodPost, "/inspections/insp-1/reinspect", token, "")
	do(t, router, http.MethodPut, "/inspections/insp-1/live", token, `{"live":false}`)

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	want := []string{"generate|operator:op-1", "generate|operator:op-1", "command|operator:op-1"}
	if len(limiter.calls) != len(want) {
		t.Fatalf("unexpected limiter calls %v", limiter.calls)
	}
	for i := range want {
		if limiter.calls[i] != want[i] {
			t.Fatalf("call %d keyed %q, want %q", i, limiter.calls[i], want[i])
		}
	}
}

func TestQueryTokenOnlyOnStreamRoutes(t *testing.T) {
	router, token := setupRouter(t, &inspectionSvcStub{}, &rateLimiterStub{})

	rr := do(t, router, http.MethodGet, "/inspections?access_token="+token, "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for query token on list, got %d", rr.Code)
	}
	rr = do(t, router, http.MethodGet, "/ws/inspections?access_token="+token, "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected query token accepted on websocket route, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/ws/inspections?access_token="+token, nil)
	req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected malformed header to win over query token, got %d", rr.Code)
	}
}

func TestTokenWithoutOperatorRejected(t *testing.T) {
	router, _ := setupRouter(t, &inspectionSvcStub{}, &rateLimiterStub{})
	blank, err := jwtpkg.GenerateToken("  ", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	rr := do(t, router, http.MethodGet, "/inspections", blank, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr error
	}{
		{"Bearer abc", "abc", nil},
		{"bearer   abc ", "abc", nil},
		{"", "", errMissingAuthorization},
		{"Basic abc", "", errMalformedBearer},
		{"Bearer", "", errMalformedBearer},
		{"Bearer a b", "", errMalformedBearer},
	}
	for _, tc := range cases {
		got, err := bearerToken(tc.header)
		if !errors.Is(err, tc.wantErr) || got != tc.want {
			t.Fatalf("bearerToken(%q) = %q, %v; want %q, %v", tc.header, got, err, tc.want, tc.wantErr)
		}
	}
}

func TestSetRetryAfter(t *testing.T) {
	now := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)
	h := http.Header{}
	setRetryAfter(h, now.Add(42*time.Second), now)
	if got := h.Get("Retry-After"); got != "42" {
		t.Fatalf("Retry-After = %q", got)
	}
	setRetryAfter(h, now.Add(-time.Second), now)
	if got := h.Get("Retry-After"); got != "1" {
		t.Fatalf("expected minimum of one second, got %q", got)
	}
}

type streamRecorder struct {
	mu     sync.Mutex
	header http.Header
	status int
	buf    bytes.Buffer
	flush  int
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{header: make(http.Header)}
}

func (s *streamRecorder) Header() http.Header {
	return s.header
}

func (s *streamRecorder) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.buf.Write(b)
}

func (s *streamRecorder) WriteHeader(status int) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *streamRecorder) Flush() {
	s.mu.Lock()
	s.flush++
	s.mu.Unlock()
}

func (s *streamRecorder) body() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func (s *streamRecorder) flushCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush
}

func (s *streamRecorder) statusCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

type noFlushRecorder struct {
	header http.Header
	status int
	buf    bytes.Buffer
}

func newNoFlushRecorder() *noFlushRecorder {
	return &noFlushRecorder{header: make(http.Header)}
}

func (r *noFlushRecorder) Header() http.Header {
	return r.header
}

func (r *noFlushRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.buf.Write(b)
}

func (r *noFlushRecorder) WriteHeader(status int) {
	r.status = status
}

func (r *noFlushRecorder) body() string {
	return r.buf.String()
}

func (r *noFlushRecorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func extractSSEPayloads(body string) ([]map[string]any, error) {
	var payloads []map[string]any
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &payload); err != nil {
			return nil, err
		}
		payloads = append(payloads, payload)
	}
	return payloads, nil
}

func parseError(t *testing.T, body string) string {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	v, _ := payload["error"].(string)
	return v
}
