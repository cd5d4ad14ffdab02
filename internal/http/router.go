package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kromedia/neo/internal/domain"
	"github.com/kromedia/neo/internal/service/auth"
	"github.com/kromedia/neo/internal/session"
	"github.com/kromedia/neo/internal/ws"
	"github.com/kromedia/neo/pkg/crypto"
	jwtpkg "github.com/kromedia/neo/pkg/jwt"
)

// Authenticator issues and validates operator tokens.
type Authenticator interface {
	IssueToken(ctx context.Context, operator, accessKey string) (auth.Token, error)
	Authorize(ctx context.Context, token string) (*jwtpkg.Claims, error)
}

// InspectionService is the inspection surface the router exposes.
type InspectionService interface {
	Inspect(ctx context.Context, operatorID, target string) (*domain.Inspection, error)
	Reinspect(ctx context.Context, id string) (*domain.Inspection, error)
	Get(ctx context.Context, id string) (*domain.Inspection, error)
	List(ctx context.Context, limit, offset int) ([]domain.Inspection, error)
	Report(ctx context.Context, id string) (*domain.Report, uint64, error)
	State(id string) (session.State, error)
	SetLive(id string, live bool) (session.State, error)
	SetInterval(id string, interval time.Duration) (session.State, error)
	RequestIntegrityRefresh(id string) (bool, error)
	OscillatorEvents(ctx context.Context, id string, history bool, limit int) ([]domain.OscillatorEvent, error)
	Subscribe(id string, sub ws.Subscriber) error
	Unsubscribe(id string, sub ws.Subscriber)
	Close(ctx context.Context, id string) error
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	auth        Authenticator
	inspections InspectionService
	upgrader    websocket.Upgrader
	limiter     RateLimiter
	dbHealth    func(context.Context) error
	metrics     *routerMetrics
	gatherer    prometheus.Gatherer
	heartbeat   time.Duration
}

const (
	healthCheckTimeout  = 2 * time.Second
	streamHeartbeat     = 15 * time.Second
	fetchRequestTimeout = 3 * time.Minute
)

// Option customises a Router.
type Option func(*Router)

// WithRegistry records HTTP metrics on reg and serves it at /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(r *Router) {
		if reg != nil {
			r.metrics = newRouterMetrics(reg)
			r.gatherer = reg
		}
	}
}

// WithDBHealth adds a database probe to /healthz.
func WithDBHealth(fn func(context.Context) error) Option {
	return func(r *Router) { r.dbHealth = fn }
}

// WithHeartbeat overrides the SSE keep-alive interval.
func WithHeartbeat(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.heartbeat = d
		}
	}
}

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc Authenticator, inspections InspectionService, limiter RateLimiter, opts ...Option) *Router {
	r := &Router{
		mux:         http.NewServeMux(),
		logger:      logger,
		auth:        authSvc,
		inspections: inspections,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:   limiter,
		heartbeat: streamHeartbeat,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if r.metrics == nil {
		r.metrics = newRouterMetrics(prometheus.DefaultRegisterer)
		r.gatherer = prometheus.DefaultGatherer
	}
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.Handle("/metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.HandleFunc("/auth/token", r.audit("/auth/token", r.withRateLimit(policyToken, r.handleToken)))
	r.mux.HandleFunc("/inspections", r.audit("/inspections", r.requireAuth(r.handleInspections)))
	r.mux.HandleFunc("/inspections/", r.audit("/inspections/:id", r.requireAuth(r.handleInspectionSubroutes)))
	r.mux.HandleFunc("/ws/inspections", r.audit("/ws/inspections", r.requireAuth(r.withRateLimit(policyStream, r.handleInspectionWS))))
}

func (r *Router) handleToken(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Operator  string `json:"operator"`
		AccessKey string `json:"access_key"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	token, err := r.auth.IssueToken(req.Context(), payload.Operator, payload.AccessKey)
	if err != nil {
		if errors.Is(err, crypto.ErrKeyNotConfigured) {
			r.logger.Error("operator access key not configured")
			writeError(w, http.StatusInternalServerError, "authentication misconfigured")
			return
		}
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token.AccessToken,
		"operator_id":  token.OperatorID,
		"expires_in":   int64(token.ExpiresIn.Seconds()),
	})
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "operator"
			fields = append(fields, "operator_id", info.OperatorID, "auth_via", info.Via)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
