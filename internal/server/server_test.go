package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdrpinto/gridastar"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, width, height int, options ...gridastar.Option) (*Server, *gridastar.Engine) {
	t.Helper()
	grid, err := gridastar.NewGrid(width, height,
		gridastar.Point{X: 0, Y: 0}, gridastar.Point{X: width - 1, Y: height - 1})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	options = append([]gridastar.Option{gridastar.WithMetrics(gridastar.NewMetrics(reg))}, options...)
	engine := gridastar.NewEngine(grid, options...)

	srv := New(engine, Config{Gatherer: reg, Rand: rand.New(rand.NewSource(5))})
	pumped := make(chan struct{})
	go func() {
		srv.PumpEvents()
		close(pumped)
	}()
	t.Cleanup(func() {
		engine.Close()
		<-pumped
	})
	return srv, engine
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeGrid(t *testing.T, w *httptest.ResponseRecorder) gridResponse {
	t.Helper()
	var resp gridResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func waitEngine(t *testing.T, engine *gridastar.Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, engine.Wait(ctx))
}

func TestGrid_ReturnsLayout(t *testing.T) {
	srv, _ := newTestServer(t, 5, 4)

	w := do(t, srv, http.MethodGet, "/grid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	resp := decodeGrid(t, w)
	assert.Equal(t, 5, resp.Width)
	assert.Equal(t, 4, resp.Height)
	assert.Equal(t, gridastar.Point{X: 0, Y: 0}, resp.Start)
	assert.Equal(t, gridastar.Point{X: 4, Y: 3}, resp.Target)
	assert.Empty(t, resp.Walls)
	assert.Equal(t, "idle", resp.State)
	assert.Contains(t, w.Body.String(), `"walls":[]`)
}

func TestEdits(t *testing.T) {
	srv, _ := newTestServer(t, 5, 4)

	w := do(t, srv, http.MethodPost, "/walls", map[string]any{"x": 2, "y": 1, "wall": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []gridastar.Point{{X: 2, Y: 1}}, decodeGrid(t, w).Walls)

	w = do(t, srv, http.MethodPost, "/start", map[string]any{"x": 2, "y": 1})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeGrid(t, w)
	assert.Equal(t, gridastar.Point{X: 2, Y: 1}, resp.Start)
	assert.Empty(t, resp.Walls, "moving the start clears the wall under it")

	w = do(t, srv, http.MethodPost, "/target", map[string]any{"x": 0, "y": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gridastar.Point{X: 0, Y: 3}, decodeGrid(t, w).Target)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"wall out of bounds", "/walls", map[string]any{"x": 9, "y": 0, "wall": true}, http.StatusBadRequest},
		{"wall missing flag", "/walls", map[string]any{"x": 1, "y": 1}, http.StatusBadRequest},
		{"start missing y", "/start", map[string]any{"x": 1}, http.StatusBadRequest},
		{"target negative", "/target", map[string]any{"x": -1, "y": 0}, http.StatusBadRequest},
		{"probability above one", "/randomize", map[string]any{"probability": 2}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestRandomize(t *testing.T) {
	srv, _ := newTestServer(t, 20, 20)

	w := do(t, srv, http.MethodPost, "/randomize", map[string]any{"probability": 0.3, "seed": 11})
	require.Equal(t, http.StatusOK, w.Code)
	first := decodeGrid(t, w).Walls
	assert.NotEmpty(t, first)

	w = do(t, srv, http.MethodPost, "/randomize", map[string]any{"probability": 0.3, "seed": 11})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first, decodeGrid(t, w).Walls, "same seed, same layout")

	w = do(t, srv, http.MethodPost, "/randomize", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSearchLifecycle(t *testing.T) {
	srv, engine := newTestServer(t, 5, 4, gridastar.WithStepDelay(0))

	w := do(t, srv, http.MethodPost, "/search/start", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	waitEngine(t, engine)

	w = do(t, srv, http.MethodGet, "/grid", nil)
	resp := decodeGrid(t, w)
	assert.Equal(t, "found", resp.State)
	assert.True(t, resp.Found)
	require.NotEmpty(t, resp.Path)
	assert.Equal(t, gridastar.Point{X: 0, Y: 0}, resp.Path[0])
	assert.Equal(t, gridastar.Point{X: 4, Y: 3}, resp.Path[len(resp.Path)-1])
	assert.NotEmpty(t, resp.RunID)
	assert.NotEmpty(t, resp.Closed)

	w = do(t, srv, http.MethodPost, "/search/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeGrid(t, w)
	assert.Equal(t, "idle", resp.State)
	assert.Empty(t, resp.Path)
	assert.Empty(t, resp.Closed)
	assert.Empty(t, resp.Open)

	w = do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `gridastar_runs_total{outcome="found"} 1`)
}

func TestSearchStart_Errors(t *testing.T) {
	t.Run("already at target", func(t *testing.T) {
		srv, _ := newTestServer(t, 3, 3)
		require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/start", map[string]any{"x": 2, "y": 2}).Code)
		w := do(t, srv, http.MethodPost, "/search/start", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("running search refuses edits and restarts", func(t *testing.T) {
		srv, engine := newTestServer(t, 60, 60, gridastar.WithStepDelay(50*time.Millisecond))
		require.Equal(t, http.StatusAccepted, do(t, srv, http.MethodPost, "/search/start", nil).Code)

		assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/search/start", nil).Code)
		assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/randomize", nil).Code)
		assert.Equal(t, http.StatusConflict,
			do(t, srv, http.MethodPost, "/target", map[string]any{"x": 3, "y": 3}).Code)
		assert.Equal(t, http.StatusOK,
			do(t, srv, http.MethodPost, "/walls", map[string]any{"x": 30, "y": 30, "wall": true}).Code,
			"walls stay editable mid-run")

		w := do(t, srv, http.MethodPost, "/search/reset", nil)
		assert.Equal(t, http.StatusAccepted, w.Code, "reset while running cancels")
		waitEngine(t, engine)
		assert.Equal(t, gridastar.Cancelled, engine.State())
	})
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, 3, 3)

	w := do(t, srv, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<canvas")

	w = do(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestEvents_StreamsRun(t *testing.T) {
	srv, engine := newTestServer(t, 4, 1, gridastar.WithStepDelay(0))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	require.Eventually(t, func() bool { return srv.hub.len() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, engine.Start())

	var kinds []string
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, ws.ReadJSON(&msg))
		kinds = append(kinds, msg.Kind)
		if msg.Kind == "path_found" {
			var found struct {
				Path []gridastar.Point `json:"path"`
				Cost float64           `json:"cost"`
			}
			require.NoError(t, json.Unmarshal(msg.Data, &found))
			assert.Len(t, found.Path, 4)
			assert.Equal(t, 3.0, found.Cost)
			break
		}
	}
	assert.Equal(t, "search_started", kinds[0])
	assert.Contains(t, kinds, "cell_visited")
	assert.Contains(t, kinds, "cell_relaxed")
}

func TestEvents_StreamsGridEdits(t *testing.T) {
	srv, _ := newTestServer(t, 4, 3)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	require.Eventually(t, func() bool { return srv.hub.len() == 1 }, 2*time.Second, 10*time.Millisecond)

	w := do(t, srv, http.MethodPost, "/walls", gin.H{"x": 2, "y": 1, "wall": true})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg struct {
		Kind string `json:"kind"`
		Data struct {
			Cells []struct {
				X    int  `json:"x"`
				Y    int  `json:"y"`
				Wall bool `json:"wall"`
			} `json:"cells"`
		} `json:"data"`
	}
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, "cells_changed", msg.Kind)
	require.Len(t, msg.Data.Cells, 1)
	assert.Equal(t, 2, msg.Data.Cells[0].X)
	assert.Equal(t, 1, msg.Data.Cells[0].Y)
	assert.True(t, msg.Data.Cells[0].Wall)
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	h := newHub()
	events, unsubscribe := h.subscribe()
	defer unsubscribe()

	for i := 0; i <= subscriberBuffer; i++ {
		h.broadcast(gridastar.CellVisited{Step: i})
	}
	assert.Equal(t, 0, h.len())

	n := 0
	for range events {
		n++
	}
	assert.Equal(t, subscriberBuffer, n, "buffered events are still delivered before close")

	h.close()
	late, _ := h.subscribe()
	_, open := <-late
	assert.False(t, open, "subscribing after close yields a closed channel")
}
