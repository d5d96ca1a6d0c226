package terminal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/infrastructure/monitoring"
)

func TestSpawnRegistersSession(t *testing.T) {
	opener := &fakeOpener{}
	mgr := newTestManager(opener)
	defer mgr.Close()

	info, err := mgr.Spawn(context.Background(), "t1", ProfileDefault, SpawnOptions{
		WorkingDir: "/tmp",
		Env:        map[string]string{"B": "2", "A": "1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "t1", info.ID)
	assert.Equal(t, "/bin/bash", info.Shell)
	assert.Equal(t, DefaultRows, info.Rows)
	assert.Equal(t, DefaultCols, info.Cols)
	assert.Equal(t, StateRunning.String(), info.State)
	assert.Equal(t, 1000, info.Pid)

	spec := opener.spec(0)
	assert.Equal(t, "/tmp", spec.Dir)
	assert.Equal(t, []string{"TERM=xterm-256color", "A=1", "B=2"}, spec.Env)

	got, err := mgr.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)
	assert.Len(t, mgr.List(), 1)
}

func TestSpawnValidation(t *testing.T) {
	mgr := newTestManager(&fakeOpener{})

	_, err := mgr.Spawn(context.Background(), "", ProfileDefault, SpawnOptions{})
	assert.ErrorIs(t, err, ErrEmptyID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = mgr.Spawn(ctx, "t1", ProfileDefault, SpawnOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mgr.List())
}

func TestSpawnFailureRegistersNothing(t *testing.T) {
	metrics := monitoring.NewMetrics()
	openErr := errors.New("no such file")
	mgr := NewManager(NewRegistry(),
		WithOpener(&fakeOpener{err: openErr}),
		WithResolver(NewResolver(WithPlatform("windows"))),
		WithMetrics(metrics),
	)

	_, err := mgr.Spawn(context.Background(), "t1", `C:\missing\shell.exe`, SpawnOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, openErr)
	assert.Contains(t, err.Error(), `C:\\missing\\shell.exe`)

	assert.Empty(t, mgr.List())
	assert.ErrorIs(t, mgr.Write("t1", []byte("x")), ErrSessionNotFound)
}

func TestWriteAndResize(t *testing.T) {
	opener := &fakeOpener{}
	mgr := newTestManager(opener)
	defer mgr.Close()

	_, err := mgr.Spawn(context.Background(), "t1", ProfileDefault, SpawnOptions{Rows: 30, Cols: 100})
	require.NoError(t, err)

	require.NoError(t, mgr.Write("t1", []byte("echo hi\n")))
	require.NoError(t, mgr.Write("t1", []byte{0x03}))
	assert.Equal(t, "echo hi\n\x03", opener.pty(0).Input())

	require.NoError(t, mgr.Resize("t1", 40, 120))
	assert.Equal(t, [][2]uint16{{40, 120}}, opener.pty(0).Resizes())

	info, err := mgr.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, uint16(40), info.Rows)
	assert.Equal(t, uint16(120), info.Cols)

	assert.ErrorIs(t, mgr.Resize("t1", 0, 120), ErrInvalidSize)
	assert.ErrorIs(t, mgr.Resize("t1", 40, 0), ErrInvalidSize)
}

func TestUnknownSessionNeverBlocks(t *testing.T) {
	mgr := newTestManager(&fakeOpener{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.ErrorIs(t, mgr.Write("nope", []byte("x")), ErrSessionNotFound)
		assert.ErrorIs(t, mgr.Resize("nope", 24, 80), ErrSessionNotFound)
		assert.ErrorIs(t, mgr.Kill("nope"), ErrSessionNotFound)
		_, err := mgr.Get("nope")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("operations on unknown session blocked")
	}
}

func TestOutputOrderedPerSession(t *testing.T) {
	opener := &fakeOpener{}
	mgr := newTestManager(opener)
	defer mgr.Close()

	// Subscribing before spawn is allowed
	sub := mgr.Subscribe("t1")
	defer sub.Close()

	_, err := mgr.Spawn(context.Background(), "t1", ProfileDefault, SpawnOptions{})
	require.NoError(t, err)

	f := opener.pty(0)
	for _, chunk := range []string{"one ", "two ", "three"} {
		f.emit(t, []byte(chunk))
	}
	f.exitWith(0)

	out, exit := collectUntilExit(t, sub)
	assert.Equal(t, "one two three", out)
	require.NotNil(t, exit.ExitCode)
	assert.Equal(t, 0, *exit.ExitCode)
	assert.NotZero(t, exit.Timestamp)
}

func TestNoCrossSessionLeakage(t *testing.T) {
	opener := &fakeOpener{}
	mgr := newTestManager(opener)
	defer mgr.Close()

	sub1 := mgr.Subscribe("t1")
	defer sub1.Close()
	sub2 := mgr.Subscribe("t2")
	defer sub2.Close()

	_, err := mgr.Spawn(context.Background(), "t1", ProfileDefault, SpawnOptions{})
	require.NoError(t, err)
	_, err = mgr.Spawn(context.Background(), "t2", ProfileDefault, SpawnOptions{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i, payload := range []string{"from-one", "from-two"} {
		wg.Add(1)
		go func(f *fakePTY, payload string) {
			defer wg.Done()
			f.emit(t, []byte(payload))
			f.exitWith(0)
		}(opener.pty(i), payload)
	}
	wg.Wait()

	out1, _ := collectUntilExit(t, sub1)
	out2, _ := collectUntilExit(t, sub2)
	assert.Equal(t, "from-one", out1)
	assert.Equal(t, "from-two", out2)
}

func TestLossyUTF8AcrossReads(t *testing.T) {
	opener := &fakeOpener{}
	mgr := newTestManager(opener)
	defer mgr.Close()

	sub := mgr.Subscribe("t1")
	defer sub.Close()

	_, err := mgr.Spawn(context.Background(), "t1", ProfileDefault, SpawnOptions{})
	require.NoError(t, err)

	f := opener.pty(0)
	f.emit(t, []byte{0xff})
	// "é" split across two reads
	f.emit(t, []byte{0xc3})
	f.emit(t, []byte{0xa9, '!'})
	f.exitWith(0)

	out, _ := collectUntilExit(t, sub)
	assert.Equal(t, "\uFFFDé!", out)
}

func TestSessionEndPurgesRegistry(t *testing.T) {
	opener := &fakeOpener{}
	metrics := monitoring.NewMetrics()
	mgr := NewManager(NewRegistry(),
		WithOpener(opener),
		WithResolver(NewResolver(WithPlatform("linux"), WithDefaultShell("/bin/bash"))),
		WithMetrics(metrics),
	)
	defer mgr.Close()

	sub := mgr.Subscribe("t1")
	defer sub.Close()

	_, err := mgr.Spawn(context.Background(), "t1", ProfileDefault, SpawnOptions{})
	require.NoError(t, err)

	opener.pty(0).exitWith(3)

	_, exit := collectUntilExit(t, sub)
	require.NotNil(t, exit.ExitCode)
	assert.Equal(t, 3, *exit.ExitCode)

	assert.ErrorIs(t, mgr.Write("t1", []byte("x")), ErrSessionNotFound)
	assert.ErrorIs(t, mgr.Resize("t1", 24, 80), ErrSessionNotFound)
	assert.Empty(t, mgr.List())
	assert.True(t, opener.pty(0).closed.Load())
}

func TestRespawnReplacesSession(t *testing.T) {
	opener := &fakeOpener{}
	mgr := newTestManager(opener)
	defer mgr.Close()

	sub := mgr.Subscribe("t1")
	defer sub.Close()

	_, err := mgr.Spawn(context.Background(), "t1", ProfileDefault, SpawnOptions{})
	require.NoError(t, err)
	_, err = mgr.Spawn(context.Background(), "t1", ProfileDefault, SpawnOptions{})
	require.NoError(t, err)

	old, current := opener.pty(0), opener.pty(1)
	assert.True(t, old.killed.Load())
	assert.True(t, old.closed.Load())

	require.NoError(t, mgr.Write("t1", []byte("ls\n")))
	assert.Equal(t, "ls\n", current.Input())
	assert.Empty(t, old.Input())

	// The replaced session ends silently
	assertNoEvent(t, sub, 100*time.Millisecond)

	info, err := mgr.Get("t1")
	require.NoError(t, err)
	assert.Equal(t, current.pid, info.Pid)

	current.emit(t, []byte("new"))
	current.exitWith(0)
	out, _ := collectUntilExit(t, sub)
	assert.Equal(t, "new", out)
}

func TestKill(t *testing.T) {
	opener := &fakeOpener{}
	mgr := newTestManager(opener)

	sub := mgr.Subscribe("t1")
	defer sub.Close()

	_, err := mgr.Spawn(context.Background(), "t1", ProfileDefault, SpawnOptions{})
	require.NoError(t, err)

	require.NoError(t, mgr.Kill("t1"))
	assert.True(t, opener.pty(0).killed.Load())
	assert.Empty(t, mgr.List())

	_, exit := collectUntilExit(t, sub)
	require.NotNil(t, exit.ExitCode)
	assert.Equal(t, 137, *exit.ExitCode)

	assert.ErrorIs(t, mgr.Kill("t1"), ErrSessionNotFound)
}

func TestConcurrentWritesDoNotInterleave(t *testing.T) {
	opener := &fakeOpener{}
	mgr := newTestManager(opener)
	defer mgr.Close()

	_, err := mgr.Spawn(context.Background(), "t1", ProfileDefault, SpawnOptions{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, mgr.Write("t1", []byte("abcd")))
		}()
	}
	wg.Wait()

	input := opener.pty(0).Input()
	require.Len(t, input, 80)
	for i := 0; i < len(input); i += 4 {
		assert.Equal(t, "abcd", input[i:i+4])
	}
}

func TestCloseKillsEverything(t *testing.T) {
	opener := &fakeOpener{}
	mgr := newTestManager(opener)

	for _, id := range []string{"a", "b"} {
		_, err := mgr.Spawn(context.Background(), id, ProfileDefault, SpawnOptions{})
		require.NoError(t, err)
	}

	require.NoError(t, mgr.Close())
	assert.Empty(t, mgr.List())
	assert.True(t, opener.pty(0).killed.Load())
	assert.True(t, opener.pty(1).killed.Load())
}

func TestDefaultSizeOption(t *testing.T) {
	opener := &fakeOpener{}
	mgr := NewManager(NewRegistry(), WithOpener(opener), WithDefaultSize(50, 0))
	defer mgr.Close()

	info, err := mgr.Spawn(context.Background(), "t1", ProfileDefault, SpawnOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint16(50), info.Rows)
	assert.Equal(t, DefaultCols, info.Cols)
}
