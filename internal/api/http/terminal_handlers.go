package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/types"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/utils"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/terminal"
)

// ListTerminals lists live terminal sessions
func (h *Handlers) ListTerminals(c *gin.Context) {
	sessions := h.terminals.List()
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// TerminalProfiles lists the shell profiles for this platform
func (h *Handlers) TerminalProfiles(c *gin.Context) {
	resolver := h.terminals.Resolver()
	c.JSON(http.StatusOK, gin.H{
		"platform": resolver.Platform(),
		"profiles": resolver.Profiles(),
	})
}

// SpawnTerminal starts a shell under the path ID, replacing any live session
// with the same ID
func (h *Handlers) SpawnTerminal(c *gin.Context) {
	id := c.Param("id")
	if err := utils.ValidateSessionID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req types.SpawnRequest
	// An empty body spawns the default profile
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	profile := req.Profile
	if profile == "" {
		profile = terminal.ProfileDefault
	}

	info, err := h.terminals.Spawn(c.Request.Context(), id, profile, terminal.SpawnOptions{
		Rows:       req.Rows,
		Cols:       req.Cols,
		WorkingDir: req.WorkingDir,
		Env:        req.Env,
	})
	if err != nil {
		h.terminalError(c, id, err)
		return
	}

	c.JSON(http.StatusCreated, info)
}

// GetTerminal describes one session
func (h *Handlers) GetTerminal(c *gin.Context) {
	info, err := h.terminals.Get(c.Param("id"))
	if err != nil {
		h.terminalError(c, c.Param("id"), err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// TerminalInput writes raw keystrokes to a session
func (h *Handlers) TerminalInput(c *gin.Context) {
	id := c.Param("id")

	var req types.InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateInput(req.Data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.terminals.Write(id, []byte(req.Data)); err != nil {
		h.terminalError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "bytes": len(req.Data)})
}

// ResizeTerminal changes a session's geometry
func (h *Handlers) ResizeTerminal(c *gin.Context) {
	id := c.Param("id")

	var req types.ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.terminals.Resize(id, req.Rows, req.Cols); err != nil {
		h.terminalError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "rows": req.Rows, "cols": req.Cols})
}

// KillTerminal terminates a session
func (h *Handlers) KillTerminal(c *gin.Context) {
	id := c.Param("id")
	if err := h.terminals.Kill(id); err != nil {
		h.terminalError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

func (h *Handlers) terminalError(c *gin.Context, id string, err error) {
	switch {
	case errors.Is(err, terminal.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "id": id})
	case errors.Is(err, terminal.ErrInvalidSize), errors.Is(err, terminal.ErrEmptyID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "id": id})
	default:
		h.logger.Error("terminal operation failed",
			zap.String("session_id", id),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "id": id})
	}
}
