package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const rateLimiterSweepInterval = 5 * time.Minute

// RateLimiter decides whether a keyed request fits in its window.
type RateLimiter interface {
	Allow(key string, limit int, window time.Duration) rateDecision
	Close()
}

type rateDecision struct {
	allowed   bool
	count     int
	windowEnd time.Time
}

// ratePolicy is a named request budget. Routes that share a bucket draw from
// the same counter for a given caller.
type ratePolicy struct {
	bucket string
	limit  int
	window time.Duration
	key    func(*http.Request) string
}

var (
	// No operator is known before a token exists, so issuance is keyed by address.
	policyToken = ratePolicy{bucket: "token", limit: 10, window: time.Minute, key: rateLimitKeyIP}
	// Inspect and reinspect both call the report generator and share one budget.
	policyGenerate = ratePolicy{bucket: "generate", limit: 10, window: time.Minute, key: rateLimitKeyOperator}
	policyCommand  = ratePolicy{bucket: "command", limit: 120, window: time.Minute, key: rateLimitKeyOperator}
	policyRead     = ratePolicy{bucket: "read", limit: 240, window: time.Minute, key: rateLimitKeyOperator}
	policyStream   = ratePolicy{bucket: "stream", limit: 30, window: 30 * time.Second, key: rateLimitKeyOperator}
)

type memoryRateLimiter struct {
	mu      sync.Mutex
	entries map[string]rateState
	stopCh  chan struct{}
	once    sync.Once
	now     func() time.Time
}

type rateState struct {
	count     int
	windowEnd time.Time
}

// NewMemoryRateLimiter returns a fixed-window limiter kept in process memory.
func NewMemoryRateLimiter() RateLimiter {
	rl := &memoryRateLimiter{
		entries: make(map[string]rateState),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}
	go rl.sweepLoop()
	return rl
}

func (rl *memoryRateLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	state := rl.entries[key]
	if now.After(state.windowEnd) {
		state = rateState{windowEnd: now.Add(window)}
	}
	if state.count >= limit {
		return rateDecision{count: state.count, windowEnd: state.windowEnd}
	}
	state.count++
	rl.entries[key] = state
	return rateDecision{allowed: true, count: state.count, windowEnd: state.windowEnd}
}

func (rl *memoryRateLimiter) sweepLoop() {
	ticker := time.NewTicker(rateLimiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup(rl.now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *memoryRateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, state := range rl.entries {
		if now.After(state.windowEnd) {
			delete(rl.entries, key)
		}
	}
}

func (rl *memoryRateLimiter) Close() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// withRateLimit charges the request against p. Callers without an operator
// identity fall back to their address.
func (r *Router) withRateLimit(p ratePolicy, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if p.limit <= 0 || r.limiter == nil {
			next(w, req)
			return
		}
		key := ""
		if p.key != nil {
			key = p.key(req)
		}
		if key == "" {
			key = rateLimitKeyIP(req)
		}
		decision := r.limiter.Allow(p.bucket+"|"+key, p.limit, p.window)
		setRateHeaders(w.Header(), p.limit, decision)
		if !decision.allowed {
			r.recordRateLimitHit(p.bucket, rateMetricKey(key))
			setRetryAfter(w.Header(), decision.windowEnd, time.Now())
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded for "+p.bucket+" requests")
			return
		}
		next(w, req)
	}
}

func setRateHeaders(h http.Header, limit int, decision rateDecision) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(limit-decision.count, 0)))
	if !decision.windowEnd.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

// setRetryAfter advertises whole seconds until the window resets, at least one.
func setRetryAfter(h http.Header, windowEnd, now time.Time) {
	wait := time.Second
	if !windowEnd.IsZero() {
		wait = max(windowEnd.Sub(now).Round(time.Second), time.Second)
	}
	h.Set("Retry-After", strconv.Itoa(int(wait/time.Second)))
}

func rateLimitKeyOperator(req *http.Request) string {
	if info, ok := authInfoFromContext(req.Context()); ok && info.OperatorID != "" {
		return "operator:" + info.OperatorID
	}
	return ""
}

func rateLimitKeyIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}

func rateMetricKey(key string) string {
	if key == "" {
		return "unknown"
	}
	if idx := strings.IndexRune(key, ':'); idx > 0 {
		return key[:idx]
	}
	return key
}
