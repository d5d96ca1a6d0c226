// Package terminaltest provides an in-memory PTY for exercising code built on
// the terminal manager without starting real shells.
package terminaltest

import (
	"bytes"
	"io"
	"sync"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/terminal"
)

// PTY is one fake session. Output written with Emit reaches the manager's
// pump; input written by the manager is recorded.
type PTY struct {
	outR *io.PipeReader
	outW *io.PipeWriter

	mu      sync.Mutex
	input   bytes.Buffer
	resizes [][2]uint16
	closed  bool

	exit    chan int
	exitOne sync.Once
	pid     int
}

func newPTY(pid int) *PTY {
	r, w := io.Pipe()
	return &PTY{outR: r, outW: w, exit: make(chan int, 1), pid: pid}
}

// Emit writes shell output. It blocks until the pump reads it.
func (p *PTY) Emit(data string) error {
	_, err := p.outW.Write([]byte(data))
	return err
}

// Exit simulates the shell exiting on its own.
func (p *PTY) Exit(code int) {
	p.exitOne.Do(func() { p.exit <- code })
	p.outW.Close()
}

// Input returns everything written to the session so far.
func (p *PTY) Input() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input.String()
}

// Resizes returns every geometry applied to the session.
func (p *PTY) Resizes() [][2]uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][2]uint16(nil), p.resizes...)
}

func (p *PTY) Resize(rows, cols uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return io.ErrClosedPipe
	}
	p.resizes = append(p.resizes, [2]uint16{rows, cols})
	return nil
}

func (p *PTY) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.outW.Close()
}

func (p *PTY) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	return p.input.Write(data)
}

type process struct{ p *PTY }

func (pr process) Pid() int { return pr.p.pid }

func (pr process) Wait() (int, error) { return <-pr.p.exit, nil }

func (pr process) Kill() error {
	pr.p.exitOne.Do(func() { pr.p.exit <- 137 })
	return nil
}

// Opener hands out a fresh PTY per Open and remembers them in order.
type Opener struct {
	// Err, when set, fails every Open.
	Err error

	mu    sync.Mutex
	ptys  []*PTY
	specs []terminal.ExecutableSpec
}

// Open implements terminal.Opener.
func (o *Opener) Open(spec terminal.ExecutableSpec, rows, cols uint16) (*terminal.Handles, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	p := newPTY(2000 + len(o.ptys))
	o.ptys = append(o.ptys, p)
	o.specs = append(o.specs, spec)
	return &terminal.Handles{
		Master:  p,
		Reader:  p.outR,
		Writer:  p,
		Process: process{p},
	}, nil
}

// PTY returns the i-th session opened.
func (o *Opener) PTY(i int) *PTY {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ptys[i]
}

// Spec returns the executable the i-th session was started with.
func (o *Opener) Spec(i int) terminal.ExecutableSpec {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.specs[i]
}

// Len reports how many sessions were opened.
func (o *Opener) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.ptys)
}

// NewManager returns a manager on a fake linux resolver backed by o.
func NewManager(o *Opener, opts ...terminal.Option) *terminal.Manager {
	base := []terminal.Option{
		terminal.WithOpener(o),
		terminal.WithResolver(terminal.NewResolver(
			terminal.WithPlatform("linux"),
			terminal.WithDefaultShell("/bin/bash"),
		)),
	}
	return terminal.NewManager(terminal.NewRegistry(), append(base, opts...)...)
}
