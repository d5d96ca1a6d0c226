// Package server wires the DevToolkit backend together.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (recovery, request IDs, access log, metrics, CORS, rate limiting)
//   - Terminal session manager and its WebSocket stream
//   - Service provider registration (terminal, files, cache, media, fonts)
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Build the terminal manager
//  4. Register service providers
//  5. Setup HTTP routes and middleware
//  6. Start HTTP server
//  7. Graceful shutdown on signal, killing every live session
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
