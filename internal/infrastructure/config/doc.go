// Package config provides 12-factor configuration management for the backend.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP listen address and allowed CORS/WebSocket origins
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Terminal: PTY geometry, POSIX shell override, subscriber backlog
//   - Files: Cache directory override and recursive size cap
//   - Media: ffmpeg location
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s\n", cfg.Addr())
//
// Environment Variables:
//   - PORT, HOST, CORS_ORIGINS
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - TERMINAL_DEFAULT_SHELL, TERMINAL_ROWS, TERMINAL_COLS, TERMINAL_SUBSCRIBER_BUFFER
//   - FILES_CACHE_DIR, FILES_SIZE_LIMIT
//   - FFMPEG_PATH
package config
