package http

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/utils"
)

const (
	maxLogBatch     = 500
	maxLogFieldsDep = 4
	maxLogMessage   = 8 * 1024
)

// ClientLogEntry is one frontend log line. SessionID ties it to the terminal
// it came from.
type ClientLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	SessionID string                 `json:"session_id,omitempty"`
	Component string                 `json:"component,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Time      string                 `json:"time,omitempty"`
}

// ClientLogBatch is the body of POST /logs.
type ClientLogBatch struct {
	Source  string           `json:"source"`
	Entries []ClientLogEntry `json:"entries"`
}

// RejectedLogEntry reports why an entry was not logged.
type RejectedLogEntry struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// StreamLogs writes frontend log entries into the server log under the "ui"
// logger, correlated with terminal sessions where given.
func (h *Handlers) StreamLogs(c *gin.Context) {
	var batch ClientLogBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid log batch"})
		return
	}
	if batch.Source != "ui" {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown log source %q", batch.Source)})
		return
	}
	switch {
	case len(batch.Entries) == 0:
		c.JSON(http.StatusBadRequest, gin.H{"error": "no log entries"})
		return
	case len(batch.Entries) > maxLogBatch:
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("at most %d entries per batch", maxLogBatch)})
		return
	}

	logger := h.logger.Named("ui")
	rejected := make([]RejectedLogEntry, 0)
	for i, entry := range batch.Entries {
		if err := h.writeClientLog(logger, entry); err != nil {
			rejected = append(rejected, RejectedLogEntry{Index: i, Error: err.Error()})
			h.logger.Debug("Dropped client log entry",
				zap.Int("index", i),
				zap.String("session_id", entry.SessionID),
				zap.Error(err),
			)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"accepted": len(batch.Entries) - len(rejected),
		"rejected": rejected,
	})
}

func (h *Handlers) writeClientLog(logger *zap.Logger, entry ClientLogEntry) error {
	if entry.Message == "" {
		return errors.New("empty message")
	}
	if len(entry.Message) > maxLogMessage {
		return fmt.Errorf("message exceeds %d bytes", maxLogMessage)
	}
	level, err := clientLevel(entry.Level)
	if err != nil {
		return err
	}

	fields := make([]zap.Field, 0, len(entry.Fields)+4)
	if entry.SessionID != "" {
		if err := utils.ValidateSessionID(entry.SessionID); err != nil {
			return err
		}
		_, lookupErr := h.terminals.Get(entry.SessionID)
		fields = append(fields,
			zap.String("session_id", entry.SessionID),
			zap.Bool("session_live", lookupErr == nil),
		)
	}
	if entry.Component != "" {
		fields = append(fields, zap.String("component", entry.Component))
	}
	if entry.Time != "" {
		fields = append(fields, zap.String("client_time", entry.Time))
	}
	if len(entry.Fields) > 0 {
		if err := utils.ValidateJSONDepth(entry.Fields, maxLogFieldsDep); err != nil {
			return err
		}
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fields = append(fields, zap.Any(k, entry.Fields[k]))
		}
	}

	if ce := logger.Check(level, entry.Message); ce != nil {
		ce.Write(fields...)
	}
	return nil
}

// clientLevel maps browser console levels onto zap levels. Anything above
// error is capped at error.
func clientLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(name) {
	case "", "log":
		return zapcore.InfoLevel, nil
	case "verbose", "trace":
		return zapcore.DebugLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	}
	level, err := zapcore.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("unknown level %q", name)
	}
	if level > zapcore.ErrorLevel {
		return zapcore.ErrorLevel, nil
	}
	return level, nil
}
