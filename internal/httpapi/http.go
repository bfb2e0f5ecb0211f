package httpapi

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"checklist_dashboard/internal/dashboard"
	"checklist_dashboard/internal/eventloop"
	"checklist_dashboard/internal/events"
	"checklist_dashboard/internal/metrics"
	"checklist_dashboard/internal/pipeline"
	"checklist_dashboard/internal/records"
	"checklist_dashboard/internal/render"
	"checklist_dashboard/internal/store"
)

//go:embed static/*
var embeddedStatic embed.FS

// Router builds HTTP handlers for /api and /ops. Every handler that touches
// dashboard state goes through the event loop.
type Router struct {
	dash    *dashboard.Dashboard
	loop    *eventloop.Loop
	metrics *metrics.Metrics
	painter *render.Painter
	bus     *events.Bus[dashboard.Frame]
}

func NewRouter(dash *dashboard.Dashboard, loop *eventloop.Loop, m *metrics.Metrics, painter *render.Painter, bus *events.Bus[dashboard.Frame]) *Router {
	return &Router{dash: dash, loop: loop, metrics: m, painter: painter, bus: bus}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", r.index)
	mux.HandleFunc("/api/frame", r.frame)
	mux.HandleFunc("/api/select", r.selectUnit)
	mux.HandleFunc("/api/click", r.click)
	mux.HandleFunc("/api/tooltip", r.tooltip)
	mux.HandleFunc("/api/units", r.units)
	mux.HandleFunc("/api/chart.png", r.chart)
	mux.HandleFunc("/api/stream", r.stream)
	mux.HandleFunc("/ops/health", r.health)
	mux.HandleFunc("/ops/status", r.status)
	mux.HandleFunc("/ops/reload", r.reload)
}

func (r *Router) index(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" {
		http.NotFound(w, req)
		return
	}
	data, err := embeddedStatic.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "missing UI", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

func (r *Router) frame(w http.ResponseWriter, req *http.Request) {
	f, err := r.dash.Current()
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, f)
}

func (r *Router) selectUnit(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Unit *int `json:"unit"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.Unit == nil || *body.Unit < 0 {
		http.Error(w, "unit must be a non-negative district number", http.StatusBadRequest)
		return
	}
	var f dashboard.Frame
	err := r.loop.Submit(req.Context(), "select", func(ctx context.Context) error {
		var err error
		f, err = r.dash.Select(*body.Unit)
		return err
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, f)
}

func (r *Router) click(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		District int    `json:"district"`
		Company  string `json:"company"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var f dashboard.Frame
	err := r.loop.Submit(req.Context(), "click", func(ctx context.Context) error {
		var err error
		f, err = r.dash.Click(body.District, body.Company)
		return err
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, f)
}

func (r *Router) tooltip(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	district, err := strconv.Atoi(q.Get("district"))
	if err != nil {
		http.Error(w, "invalid district", http.StatusBadRequest)
		return
	}
	company := q.Get("company")
	var tip pipeline.Tooltip
	err = r.loop.Submit(req.Context(), "tooltip", func(ctx context.Context) error {
		var err error
		tip, err = r.dash.Tooltip(district, company)
		return err
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, tip)
}

func (r *Router) units(w http.ResponseWriter, req *http.Request) {
	var units []int
	err := r.loop.Submit(req.Context(), "units", func(ctx context.Context) error {
		var err error
		units, err = r.dash.Units()
		return err
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, units)
}

func (r *Router) chart(w http.ResponseWriter, req *http.Request) {
	f, err := r.dash.Current()
	if err != nil {
		respondError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := r.painter.WritePNG(&buf, f); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// stream pushes every new frame as a server-sent event, starting with the
// current one.
func (r *Router) stream(w http.ResponseWriter, req *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ch := r.bus.Subscribe()
	defer r.bus.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if f, err := r.dash.Current(); err == nil {
		if err := writeEvent(w, f); err != nil {
			return
		}
	}
	flusher.Flush()
	for {
		select {
		case <-req.Context().Done():
			return
		case f, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(w, f); err != nil {
				log.Printf("httpapi: stream write failed: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if !r.loop.Healthy() {
		http.Error(w, "event loop stopped", http.StatusServiceUnavailable)
		return
	}
	if _, err := r.dash.Current(); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
	payload := map[string]any{
		"source":      r.dash.Path(),
		"metrics":     r.metrics.Snapshot(),
		"loop":        r.loop.Stats(),
		"subscribers": r.bus.Len(),
		"load_error":  nil,
	}
	if err := r.dash.LoadError(); err != nil {
		payload["load_error"] = err.Error()
	}
	if f, err := r.dash.Current(); err == nil {
		payload["frame_id"] = f.ID
		payload["level"] = f.Level
		payload["unit"] = f.Unit
	}
	if path := r.dash.Path(); store.IsDatabasePath(path) {
		payload["db_health"] = dbHealth(req.Context(), path)
	}
	respondJSON(w, payload)
}

func dbHealth(ctx context.Context, path string) string {
	st, err := store.OpenReadOnly(path)
	if err != nil {
		return err.Error()
	}
	defer st.Close()
	if err := st.Health(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}

func (r *Router) reload(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var f dashboard.Frame
	err := r.loop.Submit(req.Context(), "reload", func(ctx context.Context) error {
		var err error
		f, err = r.dash.Reload(ctx)
		return err
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, f)
}

func writeEvent(w http.ResponseWriter, f dashboard.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: frame\nid: %s\ndata: %s\n\n", f.ID, data)
	return err
}

func statusFor(err error) int {
	var loadErr *records.LoadError
	switch {
	case errors.Is(err, dashboard.ErrUnknownRecord):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrNotLoaded), errors.As(err, &loadErr):
		return http.StatusServiceUnavailable
	case errors.Is(err, eventloop.ErrFull):
		return http.StatusTooManyRequests
	case errors.Is(err, eventloop.ErrStopped), errors.Is(err, eventloop.ErrNotStarted):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	if encErr := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); encErr != nil {
		log.Printf("httpapi: write error response: %v", encErr)
	}
}

func respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("httpapi: write json: %v", err)
	}
}
