// Package ws streams terminal sessions over WebSocket.
//
// One connection attaches to one session ID. The connection subscribes
// before it reads anything, so a client may connect first and spawn the
// session afterwards over REST without losing output.
//
// Message Types (Client → Server):
//   - input: Raw keystrokes in data
//   - resize: New geometry in rows and cols
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - output: Shell output in data, in the order it was read
//   - exit: The shell ended; exit_code when known
//   - error: A frame could not be applied
//   - pong: Reply to ping
//
// Example Usage:
//
//	handler := ws.NewHandler(manager, metrics, logger, origins)
//	router.GET("/terminals/:id/stream", handler.HandleConnection)
package ws
