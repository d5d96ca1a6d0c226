package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/api/middleware"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/id"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/types"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/utils"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/terminal"
)

const (
	writeWait = 10 * time.Second
	// Output frames queued per connection before the writer applies
	// backpressure to control replies.
	sendBuffer = 64
)

// Handler manages terminal WebSocket connections
type Handler struct {
	terminals *terminal.Manager
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	upgrader  websocket.Upgrader
	validator *utils.JSONSizeValidator

	mu      sync.Mutex
	streams map[*stream]struct{}
}

// NewHandler creates a new WebSocket handler. Upgrades are accepted only
// from the given origins; "*" accepts any.
func NewHandler(terminals *terminal.Manager, metrics *monitoring.Metrics, logger *zap.Logger, origins []string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		terminals: terminals,
		metrics:   metrics,
		logger:    logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(origins, r.Header.Get("Origin"))
			},
		},
		validator: utils.DefaultJSONValidator(),
		streams:   make(map[*stream]struct{}),
	}
}

// Close detaches every open stream. Sessions keep running.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.streams {
		s.stop()
	}
}

// Active reports how many streams are attached.
func (h *Handler) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.streams)
}

func (h *Handler) track(s *stream) {
	h.mu.Lock()
	h.streams[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Handler) untrack(s *stream) {
	h.mu.Lock()
	delete(h.streams, s)
	h.mu.Unlock()
}

// HandleConnection upgrades the request and streams the session in the path
func (h *Handler) HandleConnection(c *gin.Context) {
	sessionID := c.Param("id")
	if err := utils.ValidateSessionID(sessionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Subscribe before the upgrade completes so no output is missed
	sub := h.terminals.Subscribe(sessionID)
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(int64(utils.MaxJSONSize))

	connID := id.NewConnectionID()
	log := h.logger.With(zap.Stringer("connection_id", connID), zap.String("session_id", sessionID))
	log.Debug("Terminal stream attached")

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	s := &stream{
		handler:   h,
		conn:      conn,
		sessionID: sessionID,
		log:       log,
		replies:   make(chan types.WSMessage, sendBuffer),
		closed:    make(chan struct{}),
	}
	h.track(s)
	defer h.untrack(s)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writeLoop(sub)
	}()

	s.readLoop()
	s.stop()
	wg.Wait()

	log.Debug("Terminal stream detached")
}

// stream is one attached connection. Only writeLoop writes to conn.
type stream struct {
	handler   *Handler
	conn      *websocket.Conn
	sessionID string
	log       *zap.Logger

	replies chan types.WSMessage
	closed  chan struct{}
	once    sync.Once
}

func (s *stream) stop() {
	s.once.Do(func() { close(s.closed) })
}

// reply queues a frame for the writer; it is dropped once the stream stops.
func (s *stream) reply(msg types.WSMessage) {
	msg.SessionID = s.sessionID
	msg.Timestamp = time.Now().Unix()
	select {
	case s.replies <- msg:
	case <-s.closed:
	}
}

func (s *stream) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}

		if err := s.handler.validator.ValidateSize(data); err != nil {
			s.reply(types.WSMessage{Type: types.WSError, Message: err.Error()})
			continue
		}

		var msg types.WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.reply(types.WSMessage{Type: types.WSError, Message: "invalid message format"})
			continue
		}
		s.handler.recordMessage("in", msg.Type)

		select {
		case <-s.closed:
			return
		default:
		}

		switch msg.Type {
		case types.WSInput:
			s.input(msg)
		case types.WSResize:
			if err := s.handler.terminals.Resize(s.sessionID, msg.Rows, msg.Cols); err != nil {
				s.reply(types.WSMessage{Type: types.WSError, Message: err.Error()})
			}
		case types.WSPing:
			s.reply(types.WSMessage{Type: types.WSPong})
		default:
			s.reply(types.WSMessage{Type: types.WSError, Message: "unknown message type"})
		}
	}
}

func (s *stream) input(msg types.WSMessage) {
	if err := utils.ValidateInput(msg.Data); err != nil {
		s.reply(types.WSMessage{Type: types.WSError, Message: err.Error()})
		return
	}
	err := s.handler.terminals.Write(s.sessionID, []byte(msg.Data))
	switch {
	case err == nil:
	case errors.Is(err, terminal.ErrSessionNotFound):
		// Keystrokes racing an exit or a not-yet-spawned session are dropped
	default:
		s.reply(types.WSMessage{Type: types.WSError, Message: err.Error()})
	}
}

// writeLoop forwards session events and control replies until the reader
// stops or the connection fails. The subscription stays open across an exit
// so a respawn under the same ID keeps streaming.
func (s *stream) writeLoop(sub *terminal.Subscription) {
	defer s.stop()
	for {
		var msg types.WSMessage
		select {
		case <-s.closed:
			s.closeConn()
			return
		case <-sub.Done():
			s.closeConn()
			return
		case ev := <-sub.Events():
			msg = eventMessage(ev)
		case msg = <-s.replies:
		}

		if err := s.write(msg); err != nil {
			s.log.Debug("WebSocket write failed", zap.Error(err))
			// Unblock the reader
			s.conn.Close()
			return
		}
	}
}

func (s *stream) write(msg types.WSMessage) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return err
	}
	s.handler.recordMessage("out", msg.Type)
	return nil
}

func (s *stream) closeConn() {
	deadline := time.Now().Add(writeWait)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	s.conn.Close()
}

func (h *Handler) recordMessage(direction, msgType string) {
	if h.metrics == nil {
		return
	}
	switch msgType {
	case types.WSInput, types.WSResize, types.WSPing, types.WSPong, types.WSOutput, types.WSExit, types.WSError:
	default:
		msgType = "unknown"
	}
	h.metrics.RecordWSMessage(direction, msgType)
}

func eventMessage(ev terminal.Event) types.WSMessage {
	msg := types.WSMessage{
		SessionID: ev.SessionID,
		Timestamp: ev.Timestamp,
	}
	switch ev.Type {
	case terminal.EventExit:
		msg.Type = types.WSExit
		msg.ExitCode = ev.ExitCode
	default:
		msg.Type = types.WSOutput
		msg.Data = ev.Data
	}
	return msg
}
