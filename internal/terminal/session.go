package terminal

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
)

// State is a session lifecycle phase.
type State int32

const (
	StateSpawning State = iota
	StateRunning
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateSpawning:
		return "spawning"
	case StateRunning:
		return "running"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Session is one live shell attached to a PTY.
//
// The registry entry owns master, writer and process. The reader belongs to
// the pump goroutine and is never reachable from here.
type Session struct {
	ID        string
	Profile   string
	Spec      ExecutableSpec
	StartedAt time.Time

	master  Master
	writer  io.Writer
	process Process

	// Serializes writers so concurrent input to one ID cannot interleave.
	writeMu sync.Mutex

	mu       sync.RWMutex
	rows     uint16
	cols     uint16
	state    State
	exitCode *int

	// emitMu is held across the superseded check and the publish.
	emitMu     sync.Mutex
	superseded atomic.Bool
	exited     chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func newSession(id, profile string, spec ExecutableSpec, h *Handles, rows, cols uint16) *Session {
	return &Session{
		ID:        id,
		Profile:   profile,
		Spec:      spec,
		StartedAt: time.Now(),
		master:    h.Master,
		writer:    h.Writer,
		process:   h.Process,
		rows:      rows,
		cols:      cols,
		state:     StateSpawning,
		exited:    make(chan struct{}),
	}
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Size returns the last applied geometry.
func (s *Session) Size() (rows, cols uint16) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows, s.cols
}

func (s *Session) setRunning() {
	s.mu.Lock()
	if s.state == StateSpawning {
		s.state = StateRunning
	}
	s.mu.Unlock()
}

// markEnded reports whether this call performed the transition.
func (s *Session) markEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateEnded {
		return false
	}
	s.state = StateEnded
	return true
}

func (s *Session) write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.writer.Write(p)
}

func (s *Session) resize(rows, cols uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.master.Resize(rows, cols); err != nil {
		return err
	}
	s.rows, s.cols = rows, cols
	return nil
}

// reap waits for the child and records its exit code.
func (s *Session) reap() {
	code, err := s.process.Wait()
	if err == nil || code >= 0 {
		s.mu.Lock()
		s.exitCode = &code
		s.mu.Unlock()
	}
	close(s.exited)
}

// waitExit waits up to timeout for the child to be reaped.
func (s *Session) waitExit(timeout time.Duration) *int {
	select {
	case <-s.exited:
	case <-time.After(timeout):
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exitCode
}

// teardown kills the child and closes the master. Safe to call repeatedly.
func (s *Session) teardown() error {
	s.closeOnce.Do(func() {
		s.closeErr = multierr.Combine(
			s.process.Kill(),
			s.master.Close(),
		)
	})
	return s.closeErr
}

// Info is the public representation of a session.
type Info struct {
	ID        string    `json:"id"`
	Profile   string    `json:"profile"`
	Shell     string    `json:"shell"`
	Rows      uint16    `json:"rows"`
	Cols      uint16    `json:"cols"`
	Pid       int       `json:"pid"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
	ExitCode  *int      `json:"exit_code,omitempty"`
}

// Info snapshots the session.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		ID:        s.ID,
		Profile:   s.Profile,
		Shell:     s.Spec.Path,
		Rows:      s.rows,
		Cols:      s.cols,
		Pid:       s.process.Pid(),
		State:     s.state.String(),
		StartedAt: s.StartedAt,
		ExitCode:  s.exitCode,
	}
}

// emit runs publish unless s has been replaced under its ID.
func (s *Session) emit(publish func()) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.superseded.Load() {
		return false
	}
	publish()
	return true
}

// quiesce marks s superseded once any in-flight emit has finished. After it
// returns s publishes nothing more.
func (s *Session) quiesce() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.superseded.Store(true)
}
