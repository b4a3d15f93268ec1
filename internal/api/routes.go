package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/trimlay/internal/editor"
	"github.com/kikiluvv/trimlay/internal/history"
)

// ServerConfig wires the HTTP session to one editor controller
type ServerConfig struct {
	Addr       string
	Controller *editor.Controller
	Player     *Player
	History    *history.Store
	Logger     zerolog.Logger
	StartTime  time.Time
}

// session tracks results of jobs submitted over HTTP
type session struct {
	cfg ServerConfig

	mu   sync.Mutex
	last *JobResponse
}

func (s *session) record(res editor.Result) JobResponse {
	resp := resultToResponse(res)
	s.mu.Lock()
	s.last = &resp
	s.mu.Unlock()
	return resp
}

func (s *session) lastJob() *JobResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	cp := *s.last
	return &cp
}

func NewRouter(cfg ServerConfig) *chi.Mux {
	s := &session{cfg: cfg}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", s.health)
	r.Get("/state", s.state)
	r.Get("/jobs", s.jobs)

	r.Post("/metadata", s.metadata)
	r.Put("/layout", s.layout)
	r.Put("/selection", s.selection)
	r.Post("/tick", s.tick)

	r.Route("/overlay", func(r chi.Router) {
		r.Post("/drag", s.drag)
		r.Post("/resize", s.resize)
	})

	r.Post("/submit", s.submit)
	r.Post("/reset", s.reset)

	return r
}

func (s *session) health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Busy:    s.cfg.Controller.Busy(),
		UptimeS: int64(time.Since(s.cfg.StartTime).Seconds()),
	})
}

func (s *session) state(w http.ResponseWriter, r *http.Request) {
	st, err := s.cfg.Controller.Snapshot(r.Context())
	if err != nil {
		writeEditorError(w, err)
		return
	}
	resp := StateResponse{
		State:   st,
		Display: s.cfg.Player.DisplayExtent(),
		LastJob: s.lastJob(),
	}
	if area, err := editor.EffectiveDisplay(st.Native, resp.Display); err == nil {
		resp.VideoArea = &area
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *session) metadata(w http.ResponseWriter, r *http.Request) {
	var req MetadataRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.dispatch(w, r, editor.MetadataLoaded{
		Duration: req.Duration,
		Native:   editor.Extent{Width: req.Width, Height: req.Height},
	})
}

func (s *session) layout(w http.ResponseWriter, r *http.Request) {
	var req editor.Extent
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Width < 0 || req.Height < 0 {
		WriteError(w, http.StatusBadRequest, "display extent cannot be negative", "INVALID_LAYOUT")
		return
	}
	s.cfg.Player.SetDisplay(req)
	w.WriteHeader(http.StatusNoContent)
}

func (s *session) selection(w http.ResponseWriter, r *http.Request) {
	var req editor.SelectionRange
	if !decodeJSON(w, r, &req) {
		return
	}
	s.dispatch(w, r, editor.SelectionChanged{Range: req})
}

func (s *session) tick(w http.ResponseWriter, r *http.Request) {
	var req TickRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.cfg.Controller.Dispatch(r.Context(), editor.PlaybackTick{Time: req.Time}); err != nil {
		writeEditorError(w, err)
		return
	}

	var resp TickResponse
	if pos, ok := s.cfg.Player.TakeSeek(); ok {
		resp.Seek = &pos
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *session) drag(w http.ResponseWriter, r *http.Request) {
	var req DragRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.dispatch(w, r, editor.DragStopped{X: req.X, Y: req.Y})
}

func (s *session) resize(w http.ResponseWriter, r *http.Request) {
	var req ResizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.dispatch(w, r, editor.ResizeStopped{Delta: req.Delta, Handle: editor.ParseHandle(req.Handle)})
}

// submit starts a job. With ?wait=true the response carries the finished job.
func (s *session) submit(w http.ResponseWriter, r *http.Request) {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))

	results, err := s.cfg.Controller.Submit(r.Context())
	if err != nil {
		writeEditorError(w, err)
		return
	}

	finished := make(chan JobResponse, 1)
	go func() {
		finished <- s.record(<-results)
	}()

	if !wait {
		WriteJSON(w, http.StatusAccepted, SubmitResponse{Status: "accepted"})
		return
	}

	select {
	case job := <-finished:
		status := http.StatusOK
		if job.Error != "" {
			status = http.StatusBadGateway
		}
		WriteJSON(w, status, SubmitResponse{Status: job.Status, Job: &job})
	case <-r.Context().Done():
	}
}

func (s *session) reset(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, editor.Reset{})
}

func (s *session) jobs(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		WriteError(w, http.StatusServiceUnavailable, "job history is disabled", "HISTORY_DISABLED")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer", "INVALID_LIMIT")
			return
		}
		limit = n
	}

	entries, err := s.cfg.History.List(r.Context(), limit)
	if err != nil {
		s.cfg.Logger.Error().Err(err).Msg("failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
		return
	}

	resp := JobsResponse{Jobs: make([]HistoryEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Jobs = append(resp.Jobs, entryToResponse(e))
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *session) dispatch(w http.ResponseWriter, r *http.Request, ev editor.Event) {
	if err := s.cfg.Controller.Dispatch(r.Context(), ev); err != nil {
		writeEditorError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), "INVALID_BODY")
		return false
	}
	return true
}

// writeEditorError maps editor errors onto HTTP statuses
func writeEditorError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"

	switch {
	case errors.Is(err, editor.ErrNotReady):
		status, code = http.StatusConflict, "NOT_READY"
	case errors.Is(err, editor.ErrJobInFlight):
		status, code = http.StatusConflict, "JOB_IN_FLIGHT"
	case errors.Is(err, editor.ErrMetadataConflict):
		status, code = http.StatusConflict, "METADATA_CONFLICT"
	case errors.Is(err, editor.ErrInvalidMetadata):
		status, code = http.StatusBadRequest, "INVALID_METADATA"
	case errors.Is(err, editor.ErrInvalidRange):
		status, code = http.StatusBadRequest, "INVALID_RANGE"
	case errors.Is(err, editor.ErrInvalidGeometry):
		status, code = http.StatusBadRequest, "INVALID_GEOMETRY"
	case errors.Is(err, editor.ErrUnknownResizeHandle):
		status, code = http.StatusBadRequest, "UNKNOWN_HANDLE"
	case errors.Is(err, editor.ErrStopped):
		status, code = http.StatusServiceUnavailable, "STOPPED"
	}

	WriteError(w, status, err.Error(), code)
}
