//go:build !windows

package terminal

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

type nativeOpener struct{}

// Open starts spec on a new PTY. The master file serves as both reader and
// writer; os.File allows a concurrent Read and Write.
func (nativeOpener) Open(spec ExecutableSpec, rows, cols uint16) (*Handles, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		return nil, fmt.Errorf("failed to start pty: %w", err)
	}

	return &Handles{
		Master:  &unixMaster{ptmx: ptmx},
		Reader:  ptmx,
		Writer:  ptmx,
		Process: &cmdProcess{cmd: cmd},
	}, nil
}

type unixMaster struct {
	ptmx *os.File
}

func (m *unixMaster) Resize(rows, cols uint16) error {
	return pty.Setsize(m.ptmx, &pty.Winsize{Rows: rows, Cols: cols})
}

func (m *unixMaster) Close() error {
	return m.ptmx.Close()
}

type cmdProcess struct {
	cmd *exec.Cmd
}

func (p *cmdProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *cmdProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if p.cmd.ProcessState == nil {
		return -1, err
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Non-zero exit is reported through the code, not as a failure.
		err = nil
	}
	return p.cmd.ProcessState.ExitCode(), err
}

func (p *cmdProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
