package terminal

import (
	"errors"
	"io"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// readChunkSize bounds a single output fragment.
	readChunkSize = 1024

	// exitWaitTimeout bounds how long an ended pump waits for the exit code.
	exitWaitTimeout = 2 * time.Second
)

// pump drains r and publishes it under s.ID until the stream closes.
//
// Invalid UTF-8 is replaced with U+FFFD. A multi-byte sequence split across
// two reads is held back and decoded whole.
func (m *Manager) pump(s *Session, r io.Reader) {
	decoded := transform.NewReader(r, unicode.UTF8.NewDecoder())
	buf := make([]byte, readChunkSize)

	for {
		n, err := decoded.Read(buf)
		if n > 0 {
			data := string(buf[:n])
			published := s.emit(func() {
				m.hub.Publish(Event{
					Type:      EventOutput,
					SessionID: s.ID,
					Data:      data,
				})
			})
			if published && m.metrics != nil {
				m.metrics.AddTerminalOutput(n)
			}
		}
		if err != nil {
			if !isStreamClosed(err) {
				m.logger.Debug("PTY read failed", zap.String("session_id", s.ID), zap.Error(err))
			}
			break
		}
		if n == 0 {
			break
		}
	}

	m.finish(s)
}

// isStreamClosed reports errors that just mean the shell went away. Linux
// returns EIO on the master once the slave side is fully closed.
func isStreamClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EIO)
}
