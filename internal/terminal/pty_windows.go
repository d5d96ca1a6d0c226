//go:build windows

package terminal

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"unsafe"

	"go.uber.org/multierr"
	"golang.org/x/sys/windows"
)

type nativeOpener struct{}

// Open starts spec attached to a pseudo console.
//
// os.StartProcess cannot hand a pseudo console to the child, so the process
// is created directly through CreateProcess with an extended startup info.
func (nativeOpener) Open(spec ExecutableSpec, rows, cols uint16) (*Handles, error) {
	size, err := consoleSize(rows, cols)
	if err != nil {
		return nil, err
	}

	path, err := exec.LookPath(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to locate shell %q: %w", spec.Path, err)
	}

	// ptsIn/ptsOut belong to the console; ptyIn/ptyOut stay with us.
	var ptsIn, ptyIn windows.Handle
	if err := windows.CreatePipe(&ptsIn, &ptyIn, nil, 0); err != nil {
		return nil, &os.SyscallError{Syscall: "CreatePipe", Err: err}
	}
	var ptyOut, ptsOut windows.Handle
	if err := windows.CreatePipe(&ptyOut, &ptsOut, nil, 0); err != nil {
		windows.CloseHandle(ptsIn)
		windows.CloseHandle(ptyIn)
		return nil, &os.SyscallError{Syscall: "CreatePipe", Err: err}
	}

	var hpc windows.Handle
	err = windows.CreatePseudoConsole(size, ptsIn, ptsOut, 0, &hpc)
	// The console holds its own duplicates from here on.
	windows.CloseHandle(ptsIn)
	windows.CloseHandle(ptsOut)
	if err != nil {
		windows.CloseHandle(ptyIn)
		windows.CloseHandle(ptyOut)
		return nil, &os.SyscallError{Syscall: "CreatePseudoConsole", Err: err}
	}

	in := os.NewFile(uintptr(ptyIn), "<pty input>")
	out := os.NewFile(uintptr(ptyOut), "<pty output>")
	master := &conptyMaster{hpc: hpc, in: in, out: out}

	proc, err := startConsoleProcess(hpc, path, spec)
	if err != nil {
		master.Close()
		return nil, err
	}

	return &Handles{
		Master:  master,
		Reader:  out,
		Writer:  in,
		Process: proc,
	}, nil
}

func consoleSize(rows, cols uint16) (windows.Coord, error) {
	if rows > math.MaxInt16 || cols > math.MaxInt16 {
		return windows.Coord{}, strconv.ErrRange
	}
	return windows.Coord{X: int16(cols), Y: int16(rows)}, nil
}

func startConsoleProcess(hpc windows.Handle, path string, spec ExecutableSpec) (*consoleProcess, error) {
	attrs, err := windows.NewProcThreadAttributeList(1)
	if err != nil {
		return nil, &os.SyscallError{Syscall: "NewProcThreadAttributeList", Err: err}
	}
	defer attrs.Delete()

	err = attrs.Update(
		windows.PROC_THREAD_ATTRIBUTE_PSEUDOCONSOLE,
		unsafe.Pointer(hpc),
		unsafe.Sizeof(hpc),
	)
	if err != nil {
		return nil, &os.SyscallError{Syscall: "UpdateProcThreadAttribute", Err: err}
	}

	progname, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	cmdline, err := windows.UTF16PtrFromString(windows.ComposeCommandLine(append([]string{path}, spec.Args...)))
	if err != nil {
		return nil, err
	}
	var workdir *uint16
	if spec.Dir != "" {
		workdir, err = windows.UTF16PtrFromString(spec.Dir)
		if err != nil {
			return nil, err
		}
	}

	envp, err := environmentBlock(append(os.Environ(), spec.Env...))
	if err != nil {
		return nil, err
	}

	var siex windows.StartupInfoEx
	siex.StartupInfo.Cb = uint32(unsafe.Sizeof(siex))
	siex.ProcThreadAttributeList = attrs.List()

	var info windows.ProcessInformation
	err = windows.CreateProcess(
		progname,
		cmdline,
		nil,
		nil,
		false,
		windows.EXTENDED_STARTUPINFO_PRESENT|windows.CREATE_UNICODE_ENVIRONMENT,
		envp,
		workdir,
		&siex.StartupInfo,
		&info,
	)
	if err != nil {
		return nil, &os.SyscallError{Syscall: "CreateProcess", Err: err}
	}
	windows.CloseHandle(info.Thread)

	return &consoleProcess{handle: info.Process, pid: int(info.ProcessId)}, nil
}

func environmentBlock(env []string) (*uint16, error) {
	var block []uint16
	for _, kv := range env {
		u, err := windows.UTF16FromString(kv)
		if err != nil {
			return nil, err
		}
		block = append(block, u...)
	}
	if len(block) == 0 {
		return nil, nil
	}
	block = append(block, 0)
	return &block[0], nil
}

type conptyMaster struct {
	hpc  windows.Handle
	in   *os.File
	out  *os.File
	once sync.Once
	err  error
}

func (m *conptyMaster) Resize(rows, cols uint16) error {
	size, err := consoleSize(rows, cols)
	if err != nil {
		return err
	}
	return windows.ResizePseudoConsole(m.hpc, size)
}

// Close tears down the console first so the output pipe reports EOF.
func (m *conptyMaster) Close() error {
	m.once.Do(func() {
		windows.ClosePseudoConsole(m.hpc)
		m.err = multierr.Combine(m.in.Close(), m.out.Close())
	})
	return m.err
}

// consoleProcess owns the child's process handle. mu orders Kill against the
// handle close in Wait.
type consoleProcess struct {
	handle windows.Handle
	pid    int

	mu     sync.Mutex
	closed bool
}

func (p *consoleProcess) Pid() int {
	return p.pid
}

func (p *consoleProcess) Wait() (int, error) {
	defer p.release()

	if _, err := windows.WaitForSingleObject(p.handle, windows.INFINITE); err != nil {
		return -1, &os.SyscallError{Syscall: "WaitForSingleObject", Err: err}
	}
	var code uint32
	if err := windows.GetExitCodeProcess(p.handle, &code); err != nil {
		return -1, &os.SyscallError{Syscall: "GetExitCodeProcess", Err: err}
	}
	return int(code), nil
}

func (p *consoleProcess) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		windows.CloseHandle(p.handle)
	}
}

func (p *consoleProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	err := windows.TerminateProcess(p.handle, 1)
	if err == windows.ERROR_ACCESS_DENIED {
		// Already exited.
		return nil
	}
	return err
}
