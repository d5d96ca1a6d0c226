package terminal

import "io"

// Master is the controlling end of a PTY pair.
type Master interface {
	Resize(rows, cols uint16) error
	Close() error
}

// Process is the shell attached to the PTY slave.
type Process interface {
	Pid() int
	// Wait blocks until the process exits and returns its exit code.
	Wait() (int, error)
	Kill() error
}

// Handles is everything Open produces for one session.
//
// Reader is handed to the output pump; Master, Writer and Process stay with
// the registry entry. Reader and Writer are only valid while Master is open.
type Handles struct {
	Master  Master
	Reader  io.Reader
	Writer  io.Writer
	Process Process
}

// Opener allocates a PTY at the given geometry and starts spec on its slave.
//
// A failed Open must release everything it allocated.
type Opener interface {
	Open(spec ExecutableSpec, rows, cols uint16) (*Handles, error)
}

// NewOpener returns the native PTY implementation for the host platform.
func NewOpener() Opener {
	return nativeOpener{}
}
