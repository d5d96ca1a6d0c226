package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/types"
)

// OperationsOps handles file operations (copy, move, rename)
type OperationsOps struct {
	*FilesystemOps
}

// GetTools returns file operation tool definitions
func (o *OperationsOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "files.rename",
			Name:        "Rename",
			Description: "Rename a file or directory in place",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "File or directory path", Required: true},
				{Name: "new_name", Type: "string", Description: "New name", Required: true},
			},
			Returns: "string",
		},
		{
			ID:          "files.move",
			Name:        "Move",
			Description: "Move a file or directory into another directory, numbering the name on collision",
			Parameters: []types.Parameter{
				{Name: "source", Type: "string", Description: "Source path", Required: true},
				{Name: "destination", Type: "string", Description: "Destination directory", Required: true},
			},
			Returns: "string",
		},
		{
			ID:          "files.copy",
			Name:        "Copy",
			Description: "Copy a file or directory tree into another directory, numbering the name on collision",
			Parameters: []types.Parameter{
				{Name: "source", Type: "string", Description: "Source path", Required: true},
				{Name: "destination", Type: "string", Description: "Destination directory", Required: true},
				{Name: "new_name", Type: "string", Description: "Name for the copy (defaults to the source name)", Required: false},
			},
			Returns: "string",
		},
	}
}

// Rename renames an item within its parent directory
func (o *OperationsOps) Rename(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path, newName := stringParam(params, "path"), stringParam(params, "new_name")
	if path == "" {
		return types.Failure("path parameter required")
	}
	if err := validateName(newName); err != nil {
		return types.Failure(fmt.Sprintf("invalid name %q: %v", newName, err))
	}

	parent := filepath.Dir(filepath.Clean(path))
	target := filepath.Join(parent, newName)
	if target == filepath.Clean(path) {
		return types.Success(map[string]interface{}{"name": newName, "path": target})
	}
	if exists(target) {
		return types.Failure(fmt.Sprintf("%s already exists", newName))
	}

	if err := os.Rename(path, target); err != nil {
		return types.Failure(fmt.Sprintf("rename failed: %v", err))
	}

	o.logger().Debug("Renamed", zap.String("from", path), zap.String("to", target))
	return types.Success(map[string]interface{}{"name": newName, "path": target})
}

// Move moves an item into a destination directory
func (o *OperationsOps) Move(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	source, destDir, ok := o.transferParams(params)
	if !ok {
		return types.Failure("Invalid source or destination")
	}

	source = filepath.Clean(source)
	if filepath.Dir(source) == filepath.Clean(destDir) {
		return types.Success(map[string]interface{}{"name": filepath.Base(source), "path": source})
	}
	if isWithin(source, destDir) {
		return types.Failure("cannot move a directory into itself")
	}

	target := uniquePath(destDir, filepath.Base(source))
	err := os.Rename(source, target)
	if errors.Is(err, syscall.EXDEV) {
		// Different volume: fall back to copy and delete
		if err = copyTree(ctx, source, target); err == nil {
			err = os.RemoveAll(source)
		}
	}
	if err != nil {
		return types.Failure(fmt.Sprintf("move failed: %v", err))
	}

	o.logger().Debug("Moved", zap.String("from", source), zap.String("to", target))
	return types.Success(map[string]interface{}{"name": filepath.Base(target), "path": target})
}

// Copy copies an item, recursively for directories, into a destination directory
func (o *OperationsOps) Copy(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	source, destDir, ok := o.transferParams(params)
	if !ok {
		return types.Failure("Invalid source or destination")
	}

	name := filepath.Base(filepath.Clean(source))
	if newName := stringParam(params, "new_name"); newName != "" {
		if err := validateName(newName); err != nil {
			return types.Failure(fmt.Sprintf("invalid name %q: %v", newName, err))
		}
		name = newName
	}
	if isWithin(source, destDir) {
		return types.Failure("cannot copy a directory into itself")
	}

	target := uniquePath(destDir, name)
	if err := copyTree(ctx, source, target); err != nil {
		if rmErr := os.RemoveAll(target); rmErr != nil {
			err = multierr.Append(err, rmErr)
		}
		return types.Failure(fmt.Sprintf("copy failed: %v", err))
	}

	o.logger().Debug("Copied", zap.String("from", source), zap.String("to", target))
	return types.Success(map[string]interface{}{"name": filepath.Base(target), "path": target})
}

// transferParams requires an existing source and a directory destination
func (o *OperationsOps) transferParams(params map[string]interface{}) (string, string, bool) {
	source, dest := stringParam(params, "source"), stringParam(params, "destination")
	if source == "" || dest == "" || !exists(source) {
		return "", "", false
	}
	info, err := os.Stat(dest)
	if err != nil || !info.IsDir() {
		return "", "", false
	}
	return source, dest, true
}

// copyTree copies src to dst. Parents are created before children, so the
// walk is sequential.
func copyTree(ctx context.Context, src, dst string) error {
	return filepath.WalkDir(src, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case de.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case de.IsDir():
			info, err := de.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		default:
			return copyFile(path, target)
		}
	})
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, in.Close()) }()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, out.Close()) }()

	_, err = io.Copy(out, in)
	return err
}
