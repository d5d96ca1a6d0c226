// Package terminal multiplexes interactive shell sessions over pseudo-terminals.
//
// Each session is addressed by a caller-chosen ID. Spawning resolves a shell
// profile to an executable, opens a PTY at the requested geometry, starts the
// shell on the slave end and registers the session. A dedicated goroutine per
// session drains the PTY master and publishes UTF-8 text to the session's
// subscribers in read order.
//
// Components:
//   - Resolver: profile name → ExecutableSpec, per host platform
//   - Opener: PTY pair + child process (creack/pty on Unix, ConPTY on Windows)
//   - Registry: ID → *Session, guarded by a single mutex
//   - Hub: per-ID output subscribers ("terminal-output-<id>")
//   - Manager: Spawn, Write, Resize, Kill
//
// Lifecycle:
//
//	spawning → running → ended
//
// A session ends when its output stream closes. The pump marks it ended,
// purges it from the registry and publishes an exit event.
//
// Example Usage:
//
//	mgr := terminal.NewManager(terminal.NewRegistry(), terminal.WithLogger(logger))
//	sub := mgr.Subscribe("t1")
//	defer sub.Close()
//
//	if _, err := mgr.Spawn(ctx, "t1", "default", terminal.SpawnOptions{}); err != nil {
//	    return err
//	}
//	_ = mgr.Write("t1", []byte("echo hi\n"))
//
//	for ev := range sub.Events() {
//	    fmt.Print(ev.Data)
//	}
package terminal
