package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikiluvv/trimlay/internal/editor"
	"github.com/kikiluvv/trimlay/internal/history"
)

type stubEngine struct {
	out []byte
	err error
}

func (s stubEngine) Transcode(context.Context, editor.JobDescription, editor.Inputs) ([]byte, error) {
	return s.out, s.err
}

type testSession struct {
	router http.Handler
	player *Player
	ctrl   *editor.Controller
}

func newTestSession(t *testing.T, engine editor.Engine, store *history.Store) *testSession {
	t.Helper()

	player := NewPlayer(editor.Extent{})
	ctrl, err := editor.New(zerolog.Nop(), editor.Config{
		Engine:               engine,
		Layout:               player,
		Media:                player,
		ReferenceOverlaySize: 512,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ctrl.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	router := NewRouter(ServerConfig{
		Controller: ctrl,
		Player:     player,
		History:    store,
		Logger:     zerolog.Nop(),
		StartTime:  time.Now(),
	})
	return &testSession{router: router, player: player, ctrl: ctrl}
}

func (s *testSession) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, &buf)
	s.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (s *testSession) loadMedia(t *testing.T) {
	t.Helper()
	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodPut, "/layout", editor.Extent{Width: 960, Height: 540}).Code)
	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/metadata", MetadataRequest{Duration: 100, Width: 1920, Height: 1080}).Code)
}

func TestHealth(t *testing.T) {
	s := newTestSession(t, stubEngine{out: []byte("x")}, nil)

	rr := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decode[HealthResponse](t, rr)
	assert.Equal(t, "ok", body.Status)
	assert.False(t, body.Busy)
}

func TestSubmitBeforeMetadata(t *testing.T) {
	s := newTestSession(t, stubEngine{out: []byte("x")}, nil)

	rr := s.do(t, http.MethodPost, "/submit", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "NOT_READY", decode[ErrorResponse](t, rr).Code)
}

func TestEditAndSubmit(t *testing.T) {
	s := newTestSession(t, stubEngine{out: []byte("rendered")}, nil)
	s.loadMedia(t)

	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodPut, "/selection", editor.SelectionRange{Low: 10, High: 50}).Code)
	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/overlay/drag", DragRequest{X: 30, Y: 20}).Code)
	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/overlay/resize", ResizeRequest{Delta: 128, Handle: "bottomRight"}).Code)

	rr := s.do(t, http.MethodPost, "/submit?wait=true", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decode[SubmitResponse](t, rr)
	require.NotNil(t, resp.Job)
	assert.Equal(t, "succeeded", resp.Status)
	assert.Equal(t, 10.0, resp.Job.TrimStart)
	assert.Equal(t, 40.0, resp.Job.TrimLength)
	assert.Equal(t, 50.0, resp.Job.TrimEnd)
	assert.Equal(t, 60, resp.Job.OverlayX)
	assert.Equal(t, 40, resp.Job.OverlayY)
	assert.Equal(t, 1.0, resp.Job.OverlayScale)
	assert.Equal(t, len("rendered"), resp.Job.Bytes)

	state := decode[StateResponse](t, s.do(t, http.MethodGet, "/state", nil))
	require.NotNil(t, state.LastJob)
	assert.Equal(t, resp.Job.ID, state.LastJob.ID)
	assert.Equal(t, editor.OverlayGeometry{X: 30, Y: 20, Size: 256}, state.Geometry)
	require.NotNil(t, state.Window)
	assert.Equal(t, editor.TimeWindow{Start: 10, End: 50}, *state.Window)
	assert.Equal(t, editor.Extent{Width: 960, Height: 540}, state.Display)
}

func TestStateReportsVideoArea(t *testing.T) {
	s := newTestSession(t, stubEngine{}, nil)

	state := decode[StateResponse](t, s.do(t, http.MethodGet, "/state", nil))
	assert.Nil(t, state.VideoArea)

	s.loadMedia(t)

	tests := []struct {
		layout editor.Extent
		area   editor.Extent
	}{
		{editor.Extent{Width: 960, Height: 540}, editor.Extent{Width: 960, Height: 540}},
		{editor.Extent{Width: 960, Height: 600}, editor.Extent{Width: 960, Height: 540}},
		{editor.Extent{Width: 1200, Height: 540}, editor.Extent{Width: 960, Height: 540}},
	}
	for _, tt := range tests {
		require.Equal(t, http.StatusNoContent, s.do(t, http.MethodPut, "/layout", tt.layout).Code)
		state := decode[StateResponse](t, s.do(t, http.MethodGet, "/state", nil))
		require.NotNil(t, state.VideoArea, "layout %v", tt.layout)
		assert.InDelta(t, tt.area.Width, state.VideoArea.Width, 1e-9, "layout %v", tt.layout)
		assert.InDelta(t, tt.area.Height, state.VideoArea.Height, 1e-9, "layout %v", tt.layout)
	}
}

func TestSubmitFailureReportsReason(t *testing.T) {
	s := newTestSession(t, stubEngine{err: errors.New("Conversion failed!")}, nil)
	s.loadMedia(t)

	rr := s.do(t, http.MethodPost, "/submit?wait=1", nil)
	require.Equal(t, http.StatusBadGateway, rr.Code)

	resp := decode[SubmitResponse](t, rr)
	assert.Equal(t, "failed", resp.Status)
	require.NotNil(t, resp.Job)
	assert.Contains(t, resp.Job.Error, "Conversion failed!")
}

func TestSubmitAsync(t *testing.T) {
	s := newTestSession(t, stubEngine{out: []byte("x")}, nil)
	s.loadMedia(t)

	rr := s.do(t, http.MethodPost, "/submit", nil)
	assert.Equal(t, http.StatusAccepted, rr.Code)

	assert.Eventually(t, func() bool {
		state := decode[StateResponse](t, s.do(t, http.MethodGet, "/state", nil))
		return state.LastJob != nil && !state.Busy
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTickReturnsSeek(t *testing.T) {
	s := newTestSession(t, stubEngine{}, nil)
	s.loadMedia(t)
	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodPut, "/selection", editor.SelectionRange{Low: 10, High: 50}).Code)

	resp := decode[TickResponse](t, s.do(t, http.MethodPost, "/tick", TickRequest{Time: 60}))
	require.NotNil(t, resp.Seek)
	assert.Equal(t, 10.0, *resp.Seek)

	resp = decode[TickResponse](t, s.do(t, http.MethodPost, "/tick", TickRequest{Time: 20}))
	assert.Nil(t, resp.Seek)

	// playback has started, so a selection change seeks to the new start
	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodPut, "/selection", editor.SelectionRange{Low: 30, High: 50}).Code)
	pos, ok := s.player.TakeSeek()
	assert.True(t, ok)
	assert.Equal(t, 30.0, pos)
}

func TestEditorErrorsMapToStatus(t *testing.T) {
	s := newTestSession(t, stubEngine{}, nil)
	s.loadMedia(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"inverted selection", http.MethodPut, "/selection", editor.SelectionRange{Low: 60, High: 20}, http.StatusBadRequest, "INVALID_RANGE"},
		{"unknown handle", http.MethodPost, "/overlay/resize", ResizeRequest{Delta: 5, Handle: "middle"}, http.StatusBadRequest, "UNKNOWN_HANDLE"},
		{"collapsed overlay", http.MethodPost, "/overlay/resize", ResizeRequest{Delta: -500, Handle: "bottomRight"}, http.StatusBadRequest, "INVALID_GEOMETRY"},
		{"conflicting metadata", http.MethodPost, "/metadata", MetadataRequest{Duration: 5, Width: 10, Height: 10}, http.StatusConflict, "METADATA_CONFLICT"},
		{"unknown field", http.MethodPost, "/overlay/drag", map[string]any{"left": 4}, http.StatusBadRequest, "INVALID_BODY"},
		{"negative layout", http.MethodPut, "/layout", editor.Extent{Width: -1, Height: 5}, http.StatusBadRequest, "INVALID_LAYOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rr).Code)
		})
	}
}

func TestInvalidMetadata(t *testing.T) {
	s := newTestSession(t, stubEngine{}, nil)

	rr := s.do(t, http.MethodPost, "/metadata", MetadataRequest{Duration: -3})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_METADATA", decode[ErrorResponse](t, rr).Code)
}

func TestReset(t *testing.T) {
	s := newTestSession(t, stubEngine{}, nil)
	s.loadMedia(t)

	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/reset", nil).Code)

	state := decode[StateResponse](t, s.do(t, http.MethodGet, "/state", nil))
	assert.Nil(t, state.Duration)
	assert.Equal(t, editor.FullRange, state.Selection)
}

func TestJobsFromHistory(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := history.Record(stubEngine{out: []byte("abc")}, store, zerolog.Nop())
	s := newTestSession(t, engine, store)
	s.loadMedia(t)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/submit?wait=true", nil).Code)

	rr := s.do(t, http.MethodGet, "/jobs?limit=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	jobs := decode[JobsResponse](t, rr).Jobs
	require.Len(t, jobs, 1)
	assert.Equal(t, "succeeded", jobs[0].Status)
	assert.Equal(t, int64(3), jobs[0].OutputBytes)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/jobs?limit=-1", nil).Code)
}

func TestJobsWithoutHistory(t *testing.T) {
	s := newTestSession(t, stubEngine{}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodGet, "/jobs", nil).Code)
}
