package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kromedia/neo/internal/domain"
	"github.com/kromedia/neo/internal/service/inspection"
	"github.com/kromedia/neo/internal/session"
)

type inspectionView struct {
	ID             string         `json:"id"`
	Target         string         `json:"target"`
	OperatorID     string         `json:"operator_id"`
	Status         string         `json:"status"`
	Error          string         `json:"error,omitempty"`
	Live           bool           `json:"live"`
	TickIntervalMs int64          `json:"tick_interval_ms"`
	TickCount      int64          `json:"tick_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Report         *domain.Report `json:"report,omitempty"`
}

func newInspectionView(i *domain.Inspection, withReport bool) inspectionView {
	view := inspectionView{
		ID:             i.ID,
		Target:         i.Target,
		OperatorID:     i.OperatorID,
		Status:         i.Status,
		Error:          i.Error,
		Live:           i.Live,
		TickIntervalMs: i.TickInterval.Milliseconds(),
		TickCount:      i.TickCount,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
	if withReport {
		view.Report = i.Report
	}
	return view
}

type stateView struct {
	Live           bool   `json:"live"`
	TickIntervalMs int64  `json:"tick_interval_ms"`
	Fetching       bool   `json:"fetching"`
	Running        bool   `json:"running"`
	Loaded         bool   `json:"loaded"`
	Ticks          int64  `json:"ticks"`
	Seq            uint64 `json:"seq"`
}

func newStateView(s session.State) stateView {
	return stateView{
		Live:           s.Live,
		TickIntervalMs: s.Interval.Milliseconds(),
		Fetching:       s.Fetching,
		Running:        s.Running,
		Loaded:         s.Loaded,
		Ticks:          s.Ticks,
		Seq:            s.Seq,
	}
}

func (r *Router) handleInspections(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodPost:
		r.withRateLimit(policyGenerate, r.createInspection)(w, req)
	case http.MethodGet:
		r.withRateLimit(policyRead, r.listInspections)(w, req)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) createInspection(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Target string `json:"target"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for inspection creation", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	ctx, cancel := context.WithTimeout(req.Context(), fetchRequestTimeout)
	defer cancel()
	created, err := r.inspections.Inspect(ctx, info.OperatorID, payload.Target)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newInspectionView(created, true))
}

func (r *Router) listInspections(w http.ResponseWriter, req *http.Request) {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(req.URL.Query().Get("offset"))
	items, err := r.inspections.List(req.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]inspectionView, 0, len(items))
	for i := range items {
		views = append(views, newInspectionView(&items[i], false))
	}
	writeJSON(w, http.StatusOK, views)
}

func (r *Router) handleInspectionSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(req.URL.Path, "/inspections/"), "/")
	parts := strings.Split(trimmed, "/")
	id := parts[0]
	if id == "" {
		r.notFound(w)
		return
	}
	action := strings.Join(parts[1:], "/")

	var (
		policy  = policyCommand
		handler func(http.ResponseWriter, *http.Request, string)
	)
	switch action {
	case "":
		policy, handler = policyRead, r.handleInspection
	case "report":
		policy, handler = policyRead, r.handleReport
	case "live":
		handler = r.handleLive
	case "interval":
		handler = r.handleInterval
	case "integrity/refresh":
		handler = r.handleIntegrityRefresh
	case "reinspect":
		policy, handler = policyGenerate, r.handleReinspect
	case "oscillator-events":
		policy, handler = policyRead, r.handleOscillatorEvents
	case "stream":
		policy, handler = policyStream, r.handleInspectionStream
	default:
		r.notFound(w)
		return
	}
	r.withRateLimit(policy, func(w http.ResponseWriter, req *http.Request) {
		handler(w, req, id)
	})(w, req)
}

func (r *Router) handleInspection(w http.ResponseWriter, req *http.Request, id string) {
	switch req.Method {
	case http.MethodGet:
		found, err := r.inspections.Get(req.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newInspectionView(found, true))
	case http.MethodDelete:
		if err := r.inspections.Close(req.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": domain.InspectionClosed})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleReport(w http.ResponseWriter, req *http.Request, id string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	report, seq, err := r.inspections.Report(req.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"inspection_id": id,
		"seq":           seq,
		"report":        report,
	})
}

func (r *Router) handleLive(w http.ResponseWriter, req *http.Request, id string) {
	if req.Method != http.MethodPut {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Live *bool `json:"live"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil || payload.Live == nil {
		writeError(w, http.StatusBadRequest, "live flag is required")
		return
	}
	state, err := r.inspections.SetLive(id, *payload.Live)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(state))
}

func (r *Router) handleInterval(w http.ResponseWriter, req *http.Request, id string) {
	if req.Method != http.MethodPut {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		IntervalMs int64 `json:"interval_ms"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	state, err := r.inspections.SetInterval(id, time.Duration(payload.IntervalMs)*time.Millisecond)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(state))
}

func (r *Router) handleIntegrityRefresh(w http.ResponseWriter, req *http.Request, id string) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	accepted, err := r.inspections.RequestIntegrityRefresh(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": accepted})
}

func (r *Router) handleReinspect(w http.ResponseWriter, req *http.Request, id string) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	ctx, cancel := context.WithTimeout(req.Context(), fetchRequestTimeout)
	defer cancel()
	refreshed, err := r.inspections.Reinspect(ctx, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newInspectionView(refreshed, true))
}

func (r *Router) handleOscillatorEvents(w http.ResponseWriter, req *http.Request, id string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	query := req.URL.Query()
	history, _ := strconv.ParseBool(query.Get("history"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	events, err := r.inspections.OscillatorEvents(req.Context(), id, history, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	payloads := make([]inspection.EventPayload, 0, len(events))
	for _, e := range events {
		payloads = append(payloads, inspection.NewEventPayload(e))
	}
	writeJSON(w, http.StatusOK, payloads)
}
