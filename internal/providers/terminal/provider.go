package terminal

import (
	"context"
	"errors"
	"fmt"

	term "github.com/GriffinCanCode/DevToolkit/backend/internal/terminal"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/types"
)

// Provider exposes terminal sessions as service tools
type Provider struct {
	manager *term.Manager
}

// NewProvider creates a terminal provider over an existing manager
func NewProvider(manager *term.Manager) *Provider {
	return &Provider{manager: manager}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "terminal",
		Name:        "Terminal Service",
		Description: "Interactive shell sessions over a pseudo-terminal, addressed by caller-chosen IDs",
		Category:    types.CategoryTerminal,
		Capabilities: []string{
			"pty",
			"shell",
			"interactive",
			"sessions",
			"resize",
		},
		Tools: p.getTools(),
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	switch toolID {
	case "terminal.spawn":
		return p.spawn(ctx, params)
	case "terminal.write":
		return p.write(params)
	case "terminal.resize":
		return p.resize(params)
	case "terminal.list_sessions":
		return p.listSessions()
	case "terminal.get_session":
		return p.getSession(params)
	case "terminal.kill":
		return p.kill(params)
	case "terminal.profiles":
		return p.profiles()
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}

func (p *Provider) getTools() []types.Tool {
	sessionID := types.Parameter{
		Name:        "session_id",
		Type:        "string",
		Description: "Terminal session ID",
		Required:    true,
	}

	return []types.Tool{
		{
			ID:          "terminal.spawn",
			Name:        "Spawn Terminal Session",
			Description: "Start a shell on a new PTY under the given ID, replacing any session already using it",
			Parameters: []types.Parameter{
				sessionID,
				{Name: "profile", Type: "string", Description: "Shell profile (pwsh, cmd, git-bash, wsl, default) or a shell path", Required: false},
				{Name: "rows", Type: "number", Description: "Terminal height in rows. Defaults to 24", Required: false},
				{Name: "cols", Type: "number", Description: "Terminal width in columns. Defaults to 80", Required: false},
				{Name: "working_dir", Type: "string", Description: "Initial working directory", Required: false},
				{Name: "env", Type: "object", Description: "Extra environment variables", Required: false},
			},
			Returns: "session_info",
		},
		{
			ID:          "terminal.write",
			Name:        "Write to Terminal",
			Description: "Send raw input to a terminal session",
			Parameters: []types.Parameter{
				sessionID,
				{Name: "input", Type: "string", Description: "Input to send, including control characters", Required: true},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.resize",
			Name:        "Resize Terminal",
			Description: "Change terminal dimensions",
			Parameters: []types.Parameter{
				sessionID,
				{Name: "rows", Type: "number", Description: "New height in rows", Required: true},
				{Name: "cols", Type: "number", Description: "New width in columns", Required: true},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.list_sessions",
			Name:        "List Terminal Sessions",
			Description: "List all live terminal sessions",
			Parameters:  []types.Parameter{},
			Returns:     "sessions_list",
		},
		{
			ID:          "terminal.get_session",
			Name:        "Get Session Info",
			Description: "Get information about a terminal session",
			Parameters:  []types.Parameter{sessionID},
			Returns:     "session_info",
		},
		{
			ID:          "terminal.kill",
			Name:        "Kill Terminal Session",
			Description: "Terminate a terminal session",
			Parameters:  []types.Parameter{sessionID},
			Returns:     "success",
		},
		{
			ID:          "terminal.profiles",
			Name:        "List Shell Profiles",
			Description: "List the shell profiles available on this platform",
			Parameters:  []types.Parameter{},
			Returns:     "array",
		},
	}
}

func (p *Provider) spawn(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok || sessionID == "" {
		return types.Failure("session_id parameter required")
	}

	profile, _ := params["profile"].(string)
	if profile == "" {
		profile = term.ProfileDefault
	}

	opts := term.SpawnOptions{
		Rows:       dimension(params, "rows"),
		Cols:       dimension(params, "cols"),
		WorkingDir: stringParam(params, "working_dir"),
	}
	if envMap, ok := params["env"].(map[string]interface{}); ok {
		opts.Env = make(map[string]string, len(envMap))
		for k, v := range envMap {
			if str, ok := v.(string); ok {
				opts.Env[k] = str
			}
		}
	}

	info, err := p.manager.Spawn(ctx, sessionID, profile, opts)
	if err != nil {
		return types.Failure(err.Error())
	}
	return types.Success(infoData(*info))
}

func (p *Provider) write(params map[string]interface{}) (*types.Result, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok || sessionID == "" {
		return types.Failure("session_id parameter required")
	}

	input, ok := params["input"].(string)
	if !ok {
		return types.Failure("input parameter required")
	}

	if err := p.manager.Write(sessionID, []byte(input)); err != nil {
		return types.Failure(err.Error())
	}
	return types.Success(map[string]interface{}{"written": len(input)})
}

func (p *Provider) resize(params map[string]interface{}) (*types.Result, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok || sessionID == "" {
		return types.Failure("session_id parameter required")
	}

	rows, cols := dimension(params, "rows"), dimension(params, "cols")
	if err := p.manager.Resize(sessionID, rows, cols); err != nil {
		return types.Failure(err.Error())
	}
	return types.Success(map[string]interface{}{"rows": rows, "cols": cols})
}

func (p *Provider) listSessions() (*types.Result, error) {
	sessions := p.manager.List()

	return types.Success(map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (p *Provider) getSession(params map[string]interface{}) (*types.Result, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok || sessionID == "" {
		return types.Failure("session_id parameter required")
	}

	info, err := p.manager.Get(sessionID)
	if err != nil {
		return types.Failure(err.Error())
	}
	return types.Success(infoData(*info))
}

func (p *Provider) kill(params map[string]interface{}) (*types.Result, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok || sessionID == "" {
		return types.Failure("session_id parameter required")
	}

	if err := p.manager.Kill(sessionID); err != nil {
		if errors.Is(err, term.ErrSessionNotFound) {
			return types.Failure(err.Error())
		}
		return nil, err
	}
	return types.Success(map[string]interface{}{"killed": true, "session_id": sessionID})
}

func (p *Provider) profiles() (*types.Result, error) {
	resolver := p.manager.Resolver()
	return types.Success(map[string]interface{}{
		"platform": resolver.Platform(),
		"profiles": resolver.Profiles(),
	})
}

func infoData(info term.Info) map[string]interface{} {
	data := map[string]interface{}{
		"id":         info.ID,
		"profile":    info.Profile,
		"shell":      info.Shell,
		"rows":       info.Rows,
		"cols":       info.Cols,
		"pid":        info.Pid,
		"state":      info.State,
		"started_at": info.StartedAt,
	}
	if info.ExitCode != nil {
		data["exit_code"] = *info.ExitCode
	}
	return data
}

func stringParam(params map[string]interface{}, key string) string {
	s, _ := params[key].(string)
	return s
}

// dimension reads a JSON number; out-of-range values become 0.
func dimension(params map[string]interface{}, key string) uint16 {
	v, ok := params[key].(float64)
	if !ok || v < 0 || v > 65535 {
		return 0
	}
	return uint16(v)
}
