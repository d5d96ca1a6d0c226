package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MetricsJSON returns a JSON view of the process counters for the UI
func (h *Handlers) MetricsJSON(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics disabled"})
		return
	}

	snap := h.metrics.Snapshot()

	var errorRate float64
	if snap.TotalRequests > 0 {
		errorRate = float64(snap.TotalErrors) / float64(snap.TotalRequests)
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshot":   snap,
		"error_rate": errorRate,
		"terminals":  len(h.terminals.List()),
	})
}
