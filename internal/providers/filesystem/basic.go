package filesystem

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/types"
)

// BasicOps handles basic file operations
type BasicOps struct {
	*FilesystemOps
}

// GetTools returns basic file operation tool definitions
func (b *BasicOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "files.read",
			Name:        "Read File",
			Description: "Read file contents as text",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
			},
			Returns: "string",
		},
		{
			ID:          "files.read_base64",
			Name:        "Read File (Base64)",
			Description: "Read file contents encoded as standard base64",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
			},
			Returns: "string",
		},
		{
			ID:          "files.write",
			Name:        "Write File",
			Description: "Write text to a file (overwrites existing)",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File path", Required: true},
				{Name: "content", Type: "string", Description: "Text to write", Required: true},
			},
			Returns: "boolean",
		},
		{
			ID:          "files.create_file",
			Name:        "Create File",
			Description: "Create an empty file inside a directory, numbering the name on collision",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Parent directory", Required: true},
				{Name: "name", Type: "string", Description: "File name", Required: true},
			},
			Returns: "string",
		},
		{
			ID:          "files.delete",
			Name:        "Delete",
			Description: "Delete a file, or a directory with everything inside it",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File or directory path", Required: true},
			},
			Returns: "boolean",
		},
	}
}

// Read reads a file as text
func (b *BasicOps) Read(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path := stringParam(params, "path")
	if path == "" {
		return types.Failure("path parameter required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return types.Failure(fmt.Sprintf("read failed: %v", err))
	}
	return types.Success(map[string]interface{}{"content": string(data), "size": len(data)})
}

// ReadBase64 reads a file as base64
func (b *BasicOps) ReadBase64(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path := stringParam(params, "path")
	if path == "" {
		return types.Failure("path parameter required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return types.Failure(fmt.Sprintf("read failed: %v", err))
	}
	return types.Success(map[string]interface{}{
		"content": base64.StdEncoding.EncodeToString(data),
		"size":    len(data),
	})
}

// Write writes text to a file
func (b *BasicOps) Write(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path := stringParam(params, "path")
	if path == "" {
		return types.Failure("path parameter required")
	}
	content, ok := params["content"].(string)
	if !ok {
		return types.Failure("content parameter required")
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return types.Failure(fmt.Sprintf("write failed: %v", err))
	}
	return types.Success(map[string]interface{}{"written": true, "path": path, "size": len(content)})
}

// CreateFile creates a uniquely named empty file
func (b *BasicOps) CreateFile(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	parent, name := stringParam(params, "path"), stringParam(params, "name")
	if parent == "" {
		return types.Failure("path parameter required")
	}
	if err := validateName(name); err != nil {
		return types.Failure(fmt.Sprintf("invalid name %q: %v", name, err))
	}

	target := uniquePath(parent, name)
	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return types.Failure(fmt.Sprintf("create failed: %v", err))
	}
	if err := f.Close(); err != nil {
		return types.Failure(fmt.Sprintf("create failed: %v", err))
	}

	b.logger().Debug("File created", zap.String("path", target))
	return types.Success(map[string]interface{}{
		"name": filepath.Base(target),
		"path": target,
	})
}

// Delete removes a file or a directory tree
func (b *BasicOps) Delete(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path := stringParam(params, "path")
	if path == "" {
		return types.Failure("path parameter required")
	}

	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.Failure("path does not exist")
		}
		return types.Failure(fmt.Sprintf("delete failed: %v", err))
	}

	if info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return types.Failure(fmt.Sprintf("delete failed: %v", err))
	}

	b.logger().Debug("Deleted", zap.String("path", path), zap.Bool("dir", info.IsDir()))
	return types.Success(map[string]interface{}{"deleted": true, "path": path})
}
