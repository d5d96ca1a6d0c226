/*
Package monitoring provides Prometheus metrics for the backend.

# Overview

Each Metrics value owns its own prometheus.Registry, so tests and embedded
servers can create as many as they like without duplicate registration
panics.

# Features

- HTTP request metrics (latency, throughput, size)
- Service tool call metrics (duration, failures)
- Terminal session metrics (active, spawned, ended, bytes in/out)
- WebSocket connection metrics
- Uptime and Go runtime collectors

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "filesystem", "files.list")
	// ... perform operation ...
	timer.Stop("success")
*/
package monitoring
