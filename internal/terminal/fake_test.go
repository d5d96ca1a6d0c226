package terminal

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakePTY stands in for a PTY pair and its child. Output written by the test
// through emit reaches the pump; input written by the manager lands in input.
type fakePTY struct {
	outR *io.PipeReader
	outW *io.PipeWriter

	mu      sync.Mutex
	input   bytes.Buffer
	resizes [][2]uint16

	exit   chan int
	killed atomic.Bool
	closed atomic.Bool
	pid    int
}

func newFakePTY(pid int) *fakePTY {
	r, w := io.Pipe()
	return &fakePTY{outR: r, outW: w, exit: make(chan int, 1), pid: pid}
}

func (f *fakePTY) emit(t *testing.T, p []byte) {
	t.Helper()
	_, err := f.outW.Write(p)
	require.NoError(t, err)
}

// exitWith simulates the shell exiting on its own.
func (f *fakePTY) exitWith(code int) {
	select {
	case f.exit <- code:
	default:
	}
	f.outW.Close()
}

func (f *fakePTY) Input() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input.String()
}

func (f *fakePTY) Resizes() [][2]uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]uint16(nil), f.resizes...)
}

// Master

func (f *fakePTY) Resize(rows, cols uint16) error {
	if f.closed.Load() {
		return errors.New("pty closed")
	}
	f.mu.Lock()
	f.resizes = append(f.resizes, [2]uint16{rows, cols})
	f.mu.Unlock()
	return nil
}

func (f *fakePTY) Close() error {
	f.closed.Store(true)
	return f.outW.Close()
}

// Writer

type fakeWriter struct{ f *fakePTY }

func (w fakeWriter) Write(p []byte) (int, error) {
	if w.f.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	w.f.mu.Lock()
	defer w.f.mu.Unlock()
	return w.f.input.Write(p)
}

// Process

type fakeProcess struct{ f *fakePTY }

func (p fakeProcess) Pid() int { return p.f.pid }

func (p fakeProcess) Wait() (int, error) {
	return <-p.f.exit, nil
}

func (p fakeProcess) Kill() error {
	p.f.killed.Store(true)
	select {
	case p.f.exit <- 137:
	default:
	}
	return nil
}

// fakeOpener hands out a fresh fakePTY per Open and remembers them in order.
type fakeOpener struct {
	mu    sync.Mutex
	ptys  []*fakePTY
	specs []ExecutableSpec
	sizes [][2]uint16
	err   error
}

func (o *fakeOpener) Open(spec ExecutableSpec, rows, cols uint16) (*Handles, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	f := newFakePTY(1000 + len(o.ptys))
	o.ptys = append(o.ptys, f)
	o.specs = append(o.specs, spec)
	o.sizes = append(o.sizes, [2]uint16{rows, cols})
	return &Handles{
		Master:  f,
		Reader:  f.outR,
		Writer:  fakeWriter{f},
		Process: fakeProcess{f},
	}, nil
}

func (o *fakeOpener) pty(i int) *fakePTY {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ptys[i]
}

func (o *fakeOpener) spec(i int) ExecutableSpec {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.specs[i]
}

func newTestManager(opener Opener) *Manager {
	return NewManager(NewRegistry(),
		WithOpener(opener),
		WithResolver(NewResolver(WithPlatform("linux"), WithDefaultShell("/bin/bash"))),
	)
}

// nextEvent waits for one event or fails the test.
func nextEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event on %s", sub.SessionID)
		return Event{}
	}
}

// collectUntilExit concatenates output until the exit event arrives.
func collectUntilExit(t *testing.T, sub *Subscription) (string, Event) {
	t.Helper()
	var out bytes.Buffer
	for {
		ev := nextEvent(t, sub)
		if ev.Type == EventExit {
			return out.String(), ev
		}
		require.Equal(t, sub.SessionID, ev.SessionID)
		out.WriteString(ev.Data)
	}
}

func assertNoEvent(t *testing.T, sub *Subscription, wait time.Duration) {
	t.Helper()
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(wait):
	}
}
