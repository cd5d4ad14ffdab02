package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/kromedia/neo/internal/ws"
)

func (r *Router) handleInspectionStream(w http.ResponseWriter, req *http.Request, id string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	if _, ok := authInfoFromContext(req.Context()); !ok {
		r.logger.Error("auth context missing for inspection stream", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	if _, err := r.inspections.State(id); err != nil {
		writeServiceError(w, err)
		return
	}

	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, r.logger)
	if err := r.inspections.Subscribe(id, client); err != nil {
		r.logger.Warn("stream subscribe failed", "inspection_id", id, "error", err)
		return
	}
	r.trackStream("sse", 1)
	defer func() {
		r.inspections.Unsubscribe(id, client)
		client.Close()
		r.trackStream("sse", -1)
	}()

	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-client.Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}

func (r *Router) handleInspectionWS(w http.ResponseWriter, req *http.Request) {
	if _, ok := authInfoFromContext(req.Context()); !ok {
		r.logger.Error("auth context missing for inspection websocket", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	id := strings.TrimSpace(req.URL.Query().Get("inspection_id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "inspection_id query parameter required")
		return
	}
	if _, err := r.inspections.State(id); err != nil {
		writeServiceError(w, err)
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	if err := r.inspections.Subscribe(id, client); err != nil {
		r.logger.Warn("websocket subscribe failed", "inspection_id", id, "error", err)
		client.Close()
		return
	}
	r.trackStream("websocket", 1)
	go func() {
		defer func() {
			r.inspections.Unsubscribe(id, client)
			client.Close()
			r.trackStream("websocket", -1)
		}()
		client.ReadLoop()
	}()
}
