package filesystem

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/types"
)

// Provider exposes the file manager operations as service tools
type Provider struct {
	basic      *BasicOps
	directory  *DirectoryOps
	operations *OperationsOps
	metadata   *MetadataOps
}

// NewProvider creates a filesystem provider. sizeLimit caps files.size walks.
func NewProvider(logger *zap.Logger, sizeLimit int) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	ops := &FilesystemOps{Logger: logger.Named("files"), SizeLimit: sizeLimit}
	return &Provider{
		basic:      &BasicOps{FilesystemOps: ops},
		directory:  &DirectoryOps{FilesystemOps: ops},
		operations: &OperationsOps{FilesystemOps: ops},
		metadata:   &MetadataOps{FilesystemOps: ops},
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	tools := make([]types.Tool, 0, 16)
	tools = append(tools, p.directory.GetTools()...)
	tools = append(tools, p.basic.GetTools()...)
	tools = append(tools, p.operations.GetTools()...)
	tools = append(tools, p.metadata.GetTools()...)

	return types.Service{
		ID:          "files",
		Name:        "File Manager Service",
		Description: "Directory listing and file CRUD on the local filesystem",
		Category:    types.CategoryFilesystem,
		Capabilities: []string{
			"list",
			"read",
			"write",
			"create",
			"delete",
			"rename",
			"move",
			"copy",
			"size",
		},
		Tools: tools,
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	switch toolID {
	// Directory
	case "files.list":
		return p.directory.List(ctx, params)
	case "files.create_dir":
		return p.directory.CreateDir(ctx, params)
	case "files.count":
		return p.directory.Count(ctx, params)
	case "files.size":
		return p.directory.Size(ctx, params)

	// Basic
	case "files.read":
		return p.basic.Read(ctx, params)
	case "files.read_base64":
		return p.basic.ReadBase64(ctx, params)
	case "files.write":
		return p.basic.Write(ctx, params)
	case "files.create_file":
		return p.basic.CreateFile(ctx, params)
	case "files.delete":
		return p.basic.Delete(ctx, params)

	// Operations
	case "files.rename":
		return p.operations.Rename(ctx, params)
	case "files.move":
		return p.operations.Move(ctx, params)
	case "files.copy":
		return p.operations.Copy(ctx, params)

	// Metadata
	case "files.stat":
		return p.metadata.Stat(ctx, params)

	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}
