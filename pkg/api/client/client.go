package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client provides typed access to the NEO API for interactive tools.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
			c.streamClient = &http.Client{Transport: h.Transport}
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:4000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:      strings.TrimRight(trimmed, "/"),
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		streamClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, token string) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	req, err := c.newRequest(ctx, method, path, body, token)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}

// Token is the access token issued to an operator.
type Token struct {
	AccessToken string `json:"access_token"`
	OperatorID  string `json:"operator_id"`
	ExpiresIn   int64  `json:"expires_in"`
}

// IssueToken exchanges the operator access key for a token.
func (c *Client) IssueToken(ctx context.Context, operator, accessKey string) (Token, error) {
	body := map[string]string{
		"operator":   operator,
		"access_key": accessKey,
	}
	var tok Token
	if err := c.do(ctx, http.MethodPost, "/auth/token", body, "", &tok); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// ReportSummary holds the report fields operator tools display.
type ReportSummary struct {
	Summary          string `json:"summary"`
	OverallRiskScore int    `json:"overallRiskScore"`
	KeyStats         struct {
		LatencyMs         int     `json:"latencyMs"`
		PacketLossPercent float64 `json:"packetLossPercent"`
		ThreatsDetected   int     `json:"threatsDetected"`
		BreachProbability int     `json:"breachProbability"`
	} `json:"keyStats"`
	OscillatorSignal struct {
		SourceSpace           string `json:"sourceSpace"`
		Intensity             int    `json:"intensity"`
		IsAttackSignal        bool   `json:"isAttackSignal"`
		FibonacciSequenceStep int    `json:"fibonacciSequenceStep"`
	} `json:"oscillatorSignal"`
	MemoryIntegrity struct {
		Status      string `json:"status"`
		LastRefresh string `json:"lastRefresh"`
	} `json:"memoryIntegrity"`
	PatchworkProtocol struct {
		Status        string `json:"status"`
		LastPatch     string `json:"lastPatch"`
		ActivePatches int    `json:"activePatches"`
	} `json:"patchworkProtocol"`
}

// Inspection mirrors the API inspection payload.
type Inspection struct {
	ID             string         `json:"id"`
	Target         string         `json:"target"`
	OperatorID     string         `json:"operator_id"`
	Status         string         `json:"status"`
	Error          string         `json:"error"`
	Live           bool           `json:"live"`
	TickIntervalMs int64          `json:"tick_interval_ms"`
	TickCount      int64          `json:"tick_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Report         *ReportSummary `json:"report"`
}

// SessionState mirrors the session clock state returned by control endpoints.
type SessionState struct {
	Live           bool   `json:"live"`
	TickIntervalMs int64  `json:"tick_interval_ms"`
	Fetching       bool   `json:"fetching"`
	Running        bool   `json:"running"`
	Loaded         bool   `json:"loaded"`
	Ticks          int64  `json:"ticks"`
	Seq            uint64 `json:"seq"`
}

// OscillatorEvent is one attack onset with its alert tone.
type OscillatorEvent struct {
	ID                    string  `json:"id"`
	Timestamp             string  `json:"timestamp"`
	SourceSpace           string  `json:"sourceSpace"`
	Intensity             int     `json:"intensity"`
	FibonacciSequenceStep int     `json:"fibonacciSequenceStep"`
	ThreatActor           string  `json:"threatActor"`
	TraceVector           string  `json:"traceVector"`
	AlertFrequencyHz      float64 `json:"alertFrequencyHz"`
}

// Inspect starts an inspection of target.
func (c *Client) Inspect(ctx context.Context, token, target string) (Inspection, error) {
	var out Inspection
	if err := c.do(ctx, http.MethodPost, "/inspections", map[string]string{"target": target}, token, &out); err != nil {
		return Inspection{}, err
	}
	return out, nil
}

// ListInspections returns recent inspections.
func (c *Client) ListInspections(ctx context.Context, token string, limit int) ([]Inspection, error) {
	query := ""
	if limit > 0 {
		query = fmt.Sprintf("?limit=%d", limit)
	}
	var out []Inspection
	if err := c.do(ctx, http.MethodGet, "/inspections"+query, nil, token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetInspection fetches one inspection with its current report.
func (c *Client) GetInspection(ctx context.Context, token, id string) (Inspection, error) {
	var out Inspection
	if err := c.do(ctx, http.MethodGet, "/inspections/"+url.PathEscape(id), nil, token, &out); err != nil {
		return Inspection{}, err
	}
	return out, nil
}

// Reinspect replaces the report of an inspection with a fresh fetch.
func (c *Client) Reinspect(ctx context.Context, token, id string) (Inspection, error) {
	var out Inspection
	path := fmt.Sprintf("/inspections/%s/reinspect", url.PathEscape(id))
	if err := c.do(ctx, http.MethodPost, path, nil, token, &out); err != nil {
		return Inspection{}, err
	}
	return out, nil
}

// Report returns the raw current report and its sequence number.
func (c *Client) Report(ctx context.Context, token, id string) (json.RawMessage, uint64, error) {
	var out struct {
		Seq    uint64          `json:"seq"`
		Report json.RawMessage `json:"report"`
	}
	path := fmt.Sprintf("/inspections/%s/report", url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, path, nil, token, &out); err != nil {
		return nil, 0, err
	}
	return out.Report, out.Seq, nil
}

// SetLive toggles live mode.
func (c *Client) SetLive(ctx context.Context, token, id string, live bool) (SessionState, error) {
	var out SessionState
	path := fmt.Sprintf("/inspections/%s/live", url.PathEscape(id))
	if err := c.do(ctx, http.MethodPut, path, map[string]bool{"live": live}, token, &out); err != nil {
		return SessionState{}, err
	}
	return out, nil
}

// SetInterval changes the tick interval.
func (c *Client) SetInterval(ctx context.Context, token, id string, interval time.Duration) (SessionState, error) {
	var out SessionState
	path := fmt.Sprintf("/inspections/%s/interval", url.PathEscape(id))
	if err := c.do(ctx, http.MethodPut, path, map[string]int64{"interval_ms": interval.Milliseconds()}, token, &out); err != nil {
		return SessionState{}, err
	}
	return out, nil
}

// RequestIntegrityRefresh asks for a memory integrity refresh and reports
// whether it was accepted.
func (c *Client) RequestIntegrityRefresh(ctx context.Context, token, id string) (bool, error) {
	var out struct {
		Accepted bool `json:"accepted"`
	}
	path := fmt.Sprintf("/inspections/%s/integrity/refresh", url.PathEscape(id))
	if err := c.do(ctx, http.MethodPost, path, nil, token, &out); err != nil {
		return false, err
	}
	return out.Accepted, nil
}

// OscillatorEvents returns the live event ring, or persisted history.
func (c *Client) OscillatorEvents(ctx context.Context, token, id string, history bool, limit int) ([]OscillatorEvent, error) {
	q := url.Values{}
	if history {
		q.Set("history", "true")
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	path := fmt.Sprintf("/inspections/%s/oscillator-events", url.PathEscape(id))
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out []OscillatorEvent
	if err := c.do(ctx, http.MethodGet, path, nil, token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CloseInspection stops the session of an inspection.
func (c *Client) CloseInspection(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/inspections/"+url.PathEscape(id), nil, token, nil)
}

// Envelope is one frame of the inspection stream.
type Envelope struct {
	Type         string          `json:"type"`
	InspectionID string          `json:"inspection_id"`
	Seq          uint64          `json:"seq"`
	Data         json.RawMessage `json:"data"`
}

// Watch follows the inspection stream until ctx ends, the server closes the
// stream, or fn returns an error. Frames at or below the highest seq already
// seen are skipped.
func (c *Client) Watch(ctx context.Context, token, id string, fn func(Envelope) error) error {
	path := fmt.Sprintf("/inspections/%s/stream", url.PathEscape(id))
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, token)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}

	var last uint64
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var env Envelope
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &env); err != nil {
			return fmt.Errorf("decode stream frame: %w", err)
		}
		if env.Seq <= last {
			continue
		}
		last = env.Seq
		if err := fn(env); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}
