package cache

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/types"
)

const bytesPerMB = 1024 * 1024

// Provider exposes the thumbnail cache as service tools
type Provider struct {
	store *Store
}

// NewProvider creates a cache provider
func NewProvider(store *Store) *Provider {
	return &Provider{store: store}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:           "cache",
		Name:         "Thumbnail Cache Service",
		Description:  "Size reporting, clearing and eviction for the thumbnail and video preview cache",
		Category:     types.CategorySystem,
		Capabilities: []string{"size", "clear", "evict"},
		Tools: []types.Tool{
			{
				ID:          "cache.size",
				Name:        "Cache Size",
				Description: "Total bytes held by the thumbnail and preview caches",
				Parameters:  []types.Parameter{},
				Returns:     "number",
			},
			{
				ID:          "cache.clear",
				Name:        "Clear Cache",
				Description: "Delete every cached thumbnail and preview",
				Parameters:  []types.Parameter{},
				Returns:     "boolean",
			},
			{
				ID:          "cache.enforce",
				Name:        "Enforce Cache Limit",
				Description: "Remove the oldest cached files until the cache fits the limit",
				Parameters: []types.Parameter{
					{Name: "max_mb", Type: "number", Description: "Maximum cache size in megabytes", Required: true},
				},
				Returns: "object",
			},
		},
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	switch toolID {
	case "cache.size":
		return p.size(ctx)
	case "cache.clear":
		return p.clear(ctx)
	case "cache.enforce":
		return p.enforce(ctx, params)
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}

func (p *Provider) size(ctx context.Context) (*types.Result, error) {
	size, err := p.store.Size(ctx)
	if err != nil {
		return types.Failure(fmt.Sprintf("size failed: %v", err))
	}
	return types.Success(map[string]interface{}{"size": size, "root": p.store.Root()})
}

func (p *Provider) clear(ctx context.Context) (*types.Result, error) {
	if err := p.store.Clear(ctx); err != nil {
		return types.Failure(fmt.Sprintf("clear failed: %v", err))
	}
	return types.Success(map[string]interface{}{"cleared": true})
}

func (p *Provider) enforce(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	maxMB, ok := params["max_mb"].(float64)
	if !ok || maxMB < 0 {
		return types.Failure("max_mb must be a non-negative number")
	}

	result, err := p.store.Enforce(ctx, int64(maxMB*bytesPerMB))
	if err != nil {
		return types.Failure(fmt.Sprintf("enforce failed: %v", err))
	}
	return types.Success(map[string]interface{}{
		"before":  result.Before,
		"after":   result.After,
		"removed": result.Removed,
	})
}
