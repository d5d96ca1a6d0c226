// Package main is the entry point for the DevToolkit backend server.
//
// The server runs next to the desktop frontend and owns everything the
// browser side cannot do itself: interactive shells on a pseudo-terminal,
// file management, the thumbnail cache, ffmpeg thumbnails and the system
// font list.
//
//	Frontend (Tauri/React) → Go Backend → PTY sessions
//	                                    → Filesystem, cache, ffmpeg, fonts
//
// The server provides:
//   - REST API for terminal sessions
//   - WebSocket streaming of terminal output
//   - Service provider registry
//   - Prometheus metrics
//   - Rate limiting and CORS
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8000
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown, killing every live shell
package main
