// Package terminal exposes PTY sessions as service tools.
//
// It is a thin adapter over the terminal manager; the same sessions are
// reachable through the REST and WebSocket routes. Output is not buffered
// here: subscribe to GET /terminals/:id/stream to receive it.
//
// Tools:
//   - terminal.spawn: Start a shell under a caller-chosen session_id
//   - terminal.write: Send input to a session
//   - terminal.resize: Resize terminal dimensions
//   - terminal.list_sessions: List live sessions
//   - terminal.get_session: Describe one session
//   - terminal.kill: Terminate a session
//   - terminal.profiles: List shell profiles for this platform
package terminal
