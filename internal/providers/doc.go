// Package providers groups the service providers the backend exposes
// through the tool registry.
//
// Each provider lives in its own subpackage and implements service.Provider:
//   - terminal: PTY sessions, shared with the REST and WebSocket routes
//   - filesystem: Listing, create, rename, move, copy, delete, read/write, sizes
//   - cache: Thumbnail and video preview cache size, clear and eviction
//   - media: ffmpeg video thumbnails
//   - fonts: System font family names
//
// Provider Interface:
//   - Definition(): Returns service metadata and tool definitions
//   - Execute(): Executes a tool with parameters
//
// User errors come back as a failed types.Result; a Go error means the tool
// ID itself was not recognized.
//
// Example Usage:
//
//	fs := filesystem.NewProvider(logger, filesystem.DefaultSizeLimit)
//	result, err := fs.Execute(ctx, "files.list", map[string]interface{}{"path": home})
package providers
