package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/service"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/types"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/terminal"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/terminal/terminaltest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type echoProvider struct{}

func (echoProvider) Definition() types.Service {
	return types.Service{
		ID:          "echo",
		Name:        "Echo Service",
		Description: "Returns its parameters",
		Category:    types.CategorySystem,
		Tools: []types.Tool{
			{ID: "echo.say", Name: "Say", Description: "Echo params back"},
		},
	}
}

func (echoProvider) Execute(_ context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	switch toolID {
	case "echo.say":
		return types.Success(params)
	case "echo.fail":
		return types.Failure("nothing to say")
	default:
		return nil, errors.New("unknown tool: " + toolID)
	}
}

type fixture struct {
	router  *gin.Engine
	opener  *terminaltest.Opener
	manager *terminal.Manager
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	opener := &terminaltest.Opener{}
	manager := terminaltest.NewManager(opener)
	t.Cleanup(func() { manager.Close() })

	registry := service.NewRegistry()
	require.NoError(t, registry.Register(echoProvider{}))

	h := NewHandlers(registry, manager, monitoring.NewMetrics(), logger)

	r := gin.New()
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/services", h.ListServices)
	r.POST("/services/discover", h.DiscoverServices)
	r.POST("/services/execute", h.ExecuteService)
	r.POST("/logs", h.StreamLogs)
	r.GET("/metrics/json", h.MetricsJSON)
	r.GET("/terminals", h.ListTerminals)
	r.GET("/terminals/profiles", h.TerminalProfiles)
	r.POST("/terminals/:id", h.SpawnTerminal)
	r.GET("/terminals/:id", h.GetTerminal)
	r.POST("/terminals/:id/input", h.TerminalInput)
	r.POST("/terminals/:id/resize", h.ResizeTerminal)
	r.DELETE("/terminals/:id", h.KillTerminal)

	return &fixture{router: r, opener: opener, manager: manager, logs: logs}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestRoot(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "online", resp["status"])
	assert.Equal(t, Version, resp["version"])
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", resp["status"])
	assert.Contains(t, resp, "metrics")

	stats := resp["service_registry"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["total_services"])

	terminals := resp["terminals"].(map[string]interface{})
	assert.Equal(t, float64(0), terminals["active"])
}

func TestListServices(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodGet, "/services", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp["services"], 1)

	w, resp = f.do(t, http.MethodGet, "/services?category=filesystem", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, resp["services"])

	w, _ = f.do(t, http.MethodGet, "/services?category=Bad_Category", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = f.do(t, http.MethodGet, "/services?q=echo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "echo", resp["query"])
	assert.Len(t, resp["services"], 1)
}

func TestDiscoverServices(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodPost, "/services/discover", map[string]interface{}{"query": "echo params"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp["services"], 1)

	w, _ = f.do(t, http.MethodPost, "/services/discover", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExecuteService(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		check      func(t *testing.T, resp map[string]interface{})
	}{
		{
			name:       "success",
			body:       map[string]interface{}{"tool_id": "echo.say", "params": map[string]interface{}{"word": "hi"}},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp map[string]interface{}) {
				assert.Equal(t, true, resp["success"])
				assert.Equal(t, "hi", resp["data"].(map[string]interface{})["word"])
			},
		},
		{
			name:       "tool failure is still a 200",
			body:       map[string]interface{}{"tool_id": "echo.fail"},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp map[string]interface{}) {
				assert.Equal(t, false, resp["success"])
				assert.Equal(t, "nothing to say", resp["error"])
			},
		},
		{
			name:       "missing tool id",
			body:       map[string]interface{}{"params": map[string]interface{}{}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid tool id characters",
			body:       map[string]interface{}{"tool_id": "echo say!"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown service",
			body:       map[string]interface{}{"tool_id": "nope.tool"},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "malformed json",
			body:       "{not json",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := f.do(t, http.MethodPost, "/services/execute", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.check != nil {
				tt.check(t, resp)
			}
		})
	}
}

func TestTerminalLifecycle(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodPost, "/terminals/term-1", map[string]interface{}{
		"rows":        30,
		"cols":        100,
		"working_dir": "/tmp",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "term-1", resp["id"])
	assert.Equal(t, "/bin/bash", resp["shell"])
	assert.Equal(t, float64(30), resp["rows"])
	assert.Equal(t, "/tmp", f.opener.Spec(0).Dir)

	w, resp = f.do(t, http.MethodGet, "/terminals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp["count"])

	w, resp = f.do(t, http.MethodGet, "/terminals/term-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "default", resp["profile"])

	w, resp = f.do(t, http.MethodPost, "/terminals/term-1/input", map[string]interface{}{"data": "ls\n"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), resp["bytes"])
	assert.Equal(t, "ls\n", f.opener.PTY(0).Input())

	w, _ = f.do(t, http.MethodPost, "/terminals/term-1/resize", map[string]interface{}{"rows": 40, "cols": 120})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [][2]uint16{{40, 120}}, f.opener.PTY(0).Resizes())

	w, _ = f.do(t, http.MethodDelete, "/terminals/term-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(t, http.MethodGet, "/terminals/term-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSpawnWithEmptyBody(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodPost, "/terminals/plain", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(terminal.DefaultRows), resp["rows"])
	assert.Equal(t, float64(terminal.DefaultCols), resp["cols"])
}

func TestSpawnRejectsBadID(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodPost, "/terminals/bad%20id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, f.opener.Len())
}

func TestSpawnFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	f.opener.Err = errors.New("exec format error")

	w, resp := f.do(t, http.MethodPost, "/terminals/t1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, resp["error"], "exec format error")
	assert.Equal(t, 1, f.logs.FilterMessage("terminal operation failed").Len())
}

func TestTerminalErrorMapping(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Spawn(context.Background(), "live", terminal.ProfileDefault, terminal.SpawnOptions{})
	require.NoError(t, err)

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
	}{
		{"input to unknown session", http.MethodPost, "/terminals/ghost/input", map[string]interface{}{"data": "x"}, http.StatusNotFound},
		{"resize unknown session", http.MethodPost, "/terminals/ghost/resize", map[string]interface{}{"rows": 10, "cols": 10}, http.StatusNotFound},
		{"kill unknown session", http.MethodDelete, "/terminals/ghost", nil, http.StatusNotFound},
		{"zero rows", http.MethodPost, "/terminals/live/resize", map[string]interface{}{"rows": 0, "cols": 10}, http.StatusBadRequest},
		{"missing input data", http.MethodPost, "/terminals/live/input", map[string]interface{}{}, http.StatusBadRequest},
		{"oversized input", http.MethodPost, "/terminals/live/input", map[string]interface{}{"data": strings.Repeat("a", 70*1024)}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestTerminalEndsAfterExit(t *testing.T) {
	f := newFixture(t)

	sub := f.manager.Subscribe("t1")
	defer sub.Close()

	w, _ := f.do(t, http.MethodPost, "/terminals/t1", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	f.opener.PTY(0).Exit(0)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sub.Events():
			if ev.Type != terminal.EventExit {
				continue
			}
			w, _ = f.do(t, http.MethodPost, "/terminals/t1/input", map[string]interface{}{"data": "x"})
			assert.Equal(t, http.StatusNotFound, w.Code)
			return
		case <-deadline:
			t.Fatal("timed out waiting for exit")
		}
	}
}

func TestTerminalProfiles(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodGet, "/terminals/profiles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "linux", resp["platform"])
	assert.Equal(t, []interface{}{"default"}, resp["profiles"])
}

func TestStreamLogs(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Spawn(context.Background(), "t1", terminal.ProfileDefault, terminal.SpawnOptions{})
	require.NoError(t, err)

	w, resp := f.do(t, http.MethodPost, "/logs", ClientLogBatch{
		Source: "ui",
		Entries: []ClientLogEntry{
			{Level: "error", Message: "render failed", SessionID: "t1", Component: "Terminal", Fields: map[string]interface{}{"frame": float64(3)}},
			{Level: "verbose", Message: "tick", SessionID: "gone"},
			{Level: "info"},
			{Level: "info", Message: "bad id", SessionID: "../etc"},
			{Level: "shout", Message: "odd level"},
			{Level: "fatal", Message: "capped"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), resp["accepted"])

	rejected, ok := resp["rejected"].([]interface{})
	require.True(t, ok)
	require.Len(t, rejected, 3)
	indexes := make([]float64, 0, len(rejected))
	for _, r := range rejected {
		indexes = append(indexes, r.(map[string]interface{})["index"].(float64))
	}
	assert.Equal(t, []float64{2, 3, 4}, indexes)

	rendered := f.logs.FilterMessage("render failed").All()
	require.Len(t, rendered, 1)
	assert.Equal(t, zapcore.ErrorLevel, rendered[0].Level)
	assert.Equal(t, "ui", rendered[0].LoggerName)
	ctx := rendered[0].ContextMap()
	assert.Equal(t, "t1", ctx["session_id"])
	assert.Equal(t, true, ctx["session_live"])
	assert.Equal(t, "Terminal", ctx["component"])
	assert.Equal(t, float64(3), ctx["frame"])

	tick := f.logs.FilterMessage("tick").All()
	require.Len(t, tick, 1)
	assert.Equal(t, zapcore.DebugLevel, tick[0].Level)
	assert.Equal(t, false, tick[0].ContextMap()["session_live"])

	capped := f.logs.FilterMessage("capped").All()
	require.Len(t, capped, 1)
	assert.Equal(t, zapcore.ErrorLevel, capped[0].Level)

	assert.Equal(t, 3, f.logs.FilterMessage("Dropped client log entry").Len())
}

func TestStreamLogsValidation(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodPost, "/logs", ClientLogBatch{Source: "elsewhere", Entries: []ClientLogEntry{{Message: "x"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPost, "/logs", ClientLogBatch{Source: "ui"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPost, "/logs", ClientLogBatch{Source: "ui", Entries: make([]ClientLogEntry, maxLogBatch+1)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w, _ = f.do(t, http.MethodPost, "/logs", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsJSON(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodGet, "/metrics/json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, resp, "snapshot")
	assert.Equal(t, float64(0), resp["error_rate"])
	assert.Equal(t, float64(0), resp["terminals"])
}
