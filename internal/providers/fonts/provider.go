package fonts

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/types"
)

// Provider exposes installed font families as a service tool
type Provider struct {
	scanner *Scanner
}

// NewProvider creates a fonts provider
func NewProvider(scanner *Scanner) *Provider {
	return &Provider{scanner: scanner}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:           "fonts",
		Name:         "Fonts Service",
		Description:  "Enumerate font families installed on this machine",
		Category:     types.CategorySystem,
		Capabilities: []string{"list"},
		Tools: []types.Tool{
			{
				ID:          "fonts.list",
				Name:        "List System Fonts",
				Description: "Sorted family names from the system and user font folders",
				Parameters:  []types.Parameter{},
				Returns:     "array",
			},
		},
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	switch toolID {
	case "fonts.list":
		families, err := p.scanner.Families(ctx)
		if err != nil {
			return types.Failure(fmt.Sprintf("font scan failed: %v", err))
		}
		return types.Success(map[string]interface{}{"fonts": families, "count": len(families)})
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}
