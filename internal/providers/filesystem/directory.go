package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/types"
)

// ErrSizeLimit is returned by TreeSize when the file limit is exceeded.
var ErrSizeLimit = errors.New("size limit reached")

// DirectoryOps handles directory operations
type DirectoryOps struct {
	*FilesystemOps
}

// GetTools returns directory operation tool definitions
func (d *DirectoryOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "files.list",
			Name:        "List Directory",
			Description: "List visible entries of a directory, folders first",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Directory path", Required: true},
				{Name: "mime", Type: "boolean", Description: "Detect MIME types of files (default true)", Required: false},
			},
			Returns: "array",
		},
		{
			ID:          "files.create_dir",
			Name:        "Create Directory",
			Description: "Create a folder inside a directory, numbering the name on collision",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Parent directory", Required: true},
				{Name: "name", Type: "string", Description: "Folder name", Required: true},
			},
			Returns: "string",
		},
		{
			ID:          "files.count",
			Name:        "Count Entries",
			Description: "Count the entries directly inside a directory",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Directory path", Required: true},
			},
			Returns: "number",
		},
		{
			ID:          "files.size",
			Name:        "Directory Size",
			Description: "Total size of a directory tree; gives up past the file limit",
			Parameters: []types.Parameter{
				{Name: "path", Type: "string", Description: "Directory path", Required: true},
			},
			Returns: "object",
		},
	}
}

// List lists directory contents
func (d *DirectoryOps) List(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path := stringParam(params, "path")
	if path == "" {
		return types.Failure("path parameter required")
	}
	withMIME := true
	if v, ok := params["mime"].(bool); ok {
		withMIME = v
	}

	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return types.Failure(fmt.Sprintf("list failed: %v", err))
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.HasPrefix(de.Name(), ".") {
			continue
		}
		full := filepath.Join(path, de.Name())
		info, err := os.Stat(full)
		if err != nil {
			// Broken symlink or raced delete
			entries = append(entries, Entry{Name: de.Name(), Path: full, IsDir: de.IsDir()})
			continue
		}
		entries = append(entries, newEntry(full, info, withMIME))
	}
	sortEntries(entries)

	return types.Success(map[string]interface{}{
		"path":    path,
		"entries": entries,
		"count":   len(entries),
	})
}

// CreateDir creates a uniquely named directory
func (d *DirectoryOps) CreateDir(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	parent, name := stringParam(params, "path"), stringParam(params, "name")
	if parent == "" {
		return types.Failure("path parameter required")
	}
	if err := validateName(name); err != nil {
		return types.Failure(fmt.Sprintf("invalid name %q: %v", name, err))
	}

	target := uniquePath(parent, name)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return types.Failure(fmt.Sprintf("create failed: %v", err))
	}

	d.logger().Debug("Directory created", zap.String("path", target))
	return types.Success(map[string]interface{}{
		"name": filepath.Base(target),
		"path": target,
	})
}

// Count counts entries directly inside a directory, hidden ones included
func (d *DirectoryOps) Count(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path := stringParam(params, "path")
	if path == "" {
		return types.Failure("path parameter required")
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.Failure("path does not exist")
		}
		return types.Failure(fmt.Sprintf("count failed: %v", err))
	}
	return types.Success(map[string]interface{}{"path": path, "count": len(entries)})
}

// Size sums file sizes below a directory
func (d *DirectoryOps) Size(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path := stringParam(params, "path")
	if path == "" {
		return types.Failure("path parameter required")
	}

	info, err := os.Stat(path)
	if err != nil {
		return types.Failure("path does not exist")
	}
	if !info.IsDir() {
		return types.Failure("path is not a directory")
	}

	total, files, err := TreeSize(ctx, path, d.sizeLimit())
	switch {
	case errors.Is(err, ErrSizeLimit):
		return types.Success(map[string]interface{}{
			"path":  path,
			"known": false,
			"limit": d.sizeLimit(),
		})
	case err != nil:
		return types.Failure(fmt.Sprintf("size failed: %v", err))
	}

	return types.Success(map[string]interface{}{
		"path":  path,
		"known": true,
		"size":  total,
		"files": files,
	})
}

// TreeSize returns the total size and count of regular files below root.
// A limit <= 0 means unbounded; otherwise visiting more than limit files
// aborts with ErrSizeLimit.
func TreeSize(ctx context.Context, root string, limit int) (int64, int64, error) {
	var total, files atomic.Int64
	var overLimit atomic.Bool

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, de fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if overLimit.Load() {
			return ErrSizeLimit
		}
		if err != nil {
			// fastwalk reports an aborted readDir back through the callback
			if errors.Is(err, ErrSizeLimit) || errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			// Unreadable subtrees are skipped
			if de != nil && de.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if de.IsDir() || !de.Type().IsRegular() {
			return nil
		}
		if n := files.Add(1); limit > 0 && n > int64(limit) {
			overLimit.Store(true)
			return ErrSizeLimit
		}
		info, err := de.Info()
		if err != nil {
			return nil
		}
		total.Add(info.Size())
		return nil
	})
	if err == nil && overLimit.Load() {
		err = ErrSizeLimit
	}
	if err == nil {
		err = ctx.Err()
	}
	return total.Load(), files.Load(), err
}

// sortEntries puts directories first, then orders by name ignoring case
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
}
