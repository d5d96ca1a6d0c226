package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/types"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/terminal"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/terminal/terminaltest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	handler *Handler
	server  *httptest.Server
	opener  *terminaltest.Opener
	manager *terminal.Manager
	metrics *monitoring.Metrics
}

func newFixture(t *testing.T, origins ...string) *fixture {
	t.Helper()
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	opener := &terminaltest.Opener{}
	manager := terminaltest.NewManager(opener)
	metrics := monitoring.NewMetrics()

	handler := NewHandler(manager, metrics, nil, origins)
	r := gin.New()
	r.GET("/terminals/:id/stream", handler.HandleConnection)

	server := httptest.NewServer(r)
	t.Cleanup(func() {
		server.Close()
		manager.Close()
	})

	return &fixture{handler: handler, server: server, opener: opener, manager: manager, metrics: metrics}
}

func (f *fixture) dial(t *testing.T, sessionID string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/terminals/" + sessionID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (f *fixture) spawn(t *testing.T, id string) *terminaltest.PTY {
	t.Helper()
	before := f.opener.Len()
	_, err := f.manager.Spawn(context.Background(), id, terminal.ProfileDefault, terminal.SpawnOptions{})
	require.NoError(t, err)
	return f.opener.PTY(before)
}

func readMessage(t *testing.T, conn *websocket.Conn) types.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg types.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, msg types.WSMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

// waitFor polls until cond holds or fails the test.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func TestStreamOutputAndExit(t *testing.T) {
	f := newFixture(t)

	// Attach before the session exists
	conn := f.dial(t, "t1", nil)
	pty := f.spawn(t, "t1")

	require.NoError(t, pty.Emit("hello "))
	require.NoError(t, pty.Emit("world"))
	pty.Exit(2)

	var out strings.Builder
	for {
		msg := readMessage(t, conn)
		assert.Equal(t, "t1", msg.SessionID)
		if msg.Type == types.WSExit {
			require.NotNil(t, msg.ExitCode)
			assert.Equal(t, 2, *msg.ExitCode)
			break
		}
		require.Equal(t, types.WSOutput, msg.Type)
		out.WriteString(msg.Data)
	}
	assert.Equal(t, "hello world", out.String())
}

func TestStreamInputAndResize(t *testing.T) {
	f := newFixture(t)
	pty := f.spawn(t, "t1")
	conn := f.dial(t, "t1", nil)

	send(t, conn, types.WSMessage{Type: types.WSInput, Data: "ls -la\r"})
	send(t, conn, types.WSMessage{Type: types.WSResize, Rows: 50, Cols: 160})

	waitFor(t, func() bool { return pty.Input() == "ls -la\r" })
	waitFor(t, func() bool { return len(pty.Resizes()) == 1 })
	assert.Equal(t, [2]uint16{50, 160}, pty.Resizes()[0])
}

func TestStreamPing(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "t1", nil)

	send(t, conn, types.WSMessage{Type: types.WSPing})

	msg := readMessage(t, conn)
	assert.Equal(t, types.WSPong, msg.Type)
	assert.Equal(t, "t1", msg.SessionID)
	assert.NotZero(t, msg.Timestamp)
}

func TestStreamErrors(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, "t1")
	conn := f.dial(t, "t1", nil)

	tests := []struct {
		name  string
		frame string
	}{
		{"unknown type", `{"type":"chat"}`},
		{"bad json", `{nope`},
		{"zero size resize", `{"type":"resize","rows":0,"cols":80}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.frame)))
			msg := readMessage(t, conn)
			assert.Equal(t, types.WSError, msg.Type)
			assert.NotEmpty(t, msg.Message)
		})
	}
}

func TestInputToMissingSessionIsDropped(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "ghost", nil)

	send(t, conn, types.WSMessage{Type: types.WSInput, Data: "x"})
	send(t, conn, types.WSMessage{Type: types.WSPing})

	// The first reply is the pong; the dropped input produced nothing
	msg := readMessage(t, conn)
	assert.Equal(t, types.WSPong, msg.Type)
}

func TestStreamSurvivesRespawn(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "t1", nil)

	first := f.spawn(t, "t1")
	first.Exit(0)
	msg := readMessage(t, conn)
	require.Equal(t, types.WSExit, msg.Type)

	second := f.spawn(t, "t1")
	require.NoError(t, second.Emit("again"))

	msg = readMessage(t, conn)
	assert.Equal(t, types.WSOutput, msg.Type)
	assert.Equal(t, "again", msg.Data)
}

func TestOriginCheck(t *testing.T) {
	f := newFixture(t, "http://localhost:1420")
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/terminals/t1/stream"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := f.dial(t, "t1", http.Header{"Origin": {"http://localhost:1420"}})
	send(t, conn, types.WSMessage{Type: types.WSPing})
	assert.Equal(t, types.WSPong, readMessage(t, conn).Type)
}

func TestInvalidSessionID(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/terminals/bad%20id/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConnectionMetrics(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "t1", nil)

	send(t, conn, types.WSMessage{Type: types.WSPing})
	readMessage(t, conn)

	waitFor(t, func() bool { return f.metrics.Snapshot().ActiveConnections == 1 })
	waitFor(t, func() bool {
		n, err := testutil.GatherAndCount(f.metrics.Registry(), "devtoolkit_ws_messages_total")
		return err == nil && n == 2
	})

	conn.Close()
	waitFor(t, func() bool { return f.metrics.Snapshot().ActiveConnections == 0 })
}

func TestCloseDetachesStreams(t *testing.T) {
	f := newFixture(t)
	pty := f.spawn(t, "t1")
	conn := f.dial(t, "t1", nil)

	waitFor(t, func() bool { return f.handler.Active() == 1 })
	f.handler.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	waitFor(t, func() bool { return f.handler.Active() == 0 })

	// The session itself is untouched
	_, err = f.manager.Get("t1")
	assert.NoError(t, err)
	assert.Empty(t, pty.Input())
}
