package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/types"
)

// MetadataOps handles file metadata operations
type MetadataOps struct {
	*FilesystemOps
}

// GetTools returns metadata operation tool definitions
func (m *MetadataOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "files.stat",
			Name:        "File Stats",
			Description: "Get file or directory metadata including detected MIME type",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File or directory path", Required: true},
			},
			Returns: "object",
		},
	}
}

// Stat returns metadata for a single path
func (m *MetadataOps) Stat(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path := stringParam(params, "path")
	if path == "" {
		return types.Failure("path parameter required")
	}

	info, err := os.Stat(path)
	if err != nil {
		return types.Failure(fmt.Sprintf("stat failed: %v", err))
	}

	entry := newEntry(path, info, true)
	return types.Success(map[string]interface{}{
		"name":     entry.Name,
		"path":     entry.Path,
		"is_dir":   entry.IsDir,
		"size":     entry.Size,
		"modified": entry.Modified,
		"mime":     entry.MIME,
		"mode":     info.Mode().String(),
	})
}

// newEntry builds a listing entry. Directories carry no size or MIME.
func newEntry(path string, info fs.FileInfo, withMIME bool) Entry {
	entry := Entry{
		Name:     filepath.Base(path),
		Path:     path,
		IsDir:    info.IsDir(),
		Modified: info.ModTime().UnixMilli(),
	}
	if entry.IsDir {
		return entry
	}

	entry.Size = info.Size()
	if withMIME {
		entry.MIME = detectMIME(path)
	}
	return entry
}

// detectMIME sniffs the file header; unreadable files report no type.
func detectMIME(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	return mt.String()
}
