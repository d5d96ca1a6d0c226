package types

// ExecuteRequest represents a service execution request
type ExecuteRequest struct {
	ToolID string                 `json:"tool_id" binding:"required"`
	Params map[string]interface{} `json:"params"`
}

// SpawnRequest starts a terminal session under the path ID
type SpawnRequest struct {
	Profile    string            `json:"profile"`
	Rows       uint16            `json:"rows"`
	Cols       uint16            `json:"cols"`
	WorkingDir string            `json:"working_dir"`
	Env        map[string]string `json:"env"`
}

// InputRequest carries raw keystrokes for a terminal session
type InputRequest struct {
	Data string `json:"data" binding:"required"`
}

// ResizeRequest carries a new terminal geometry
type ResizeRequest struct {
	Rows uint16 `json:"rows" binding:"required,gt=0"`
	Cols uint16 `json:"cols" binding:"required,gt=0"`
}

// WSMessage types exchanged on a terminal stream
const (
	WSInput  = "input"
	WSResize = "resize"
	WSPing   = "ping"
	WSPong   = "pong"
	WSOutput = "output"
	WSExit   = "exit"
	WSError  = "error"
)

// WSMessage represents a WebSocket frame on a terminal stream
type WSMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Data      string `json:"data,omitempty"`
	Rows      uint16 `json:"rows,omitempty"`
	Cols      uint16 `json:"cols,omitempty"`
	ExitCode  *int   `json:"exit_code,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// DiscoverRequest asks for services matching a free-text query
type DiscoverRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
}
