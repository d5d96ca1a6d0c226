package cache

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/providers/filesystem"
)

// AppDir is the per-user cache folder of the application
const AppDir = "com.devtoolkit.app"

// Cache subdirectories
const (
	ThumbnailsDir = "thumbnails"
	PreviewsDir   = "video_previews"
)

// Store is the on-disk thumbnail and video preview cache
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore creates a store under root. An empty root means the user cache
// directory.
func NewStore(root string, logger *zap.Logger) (*Store, error) {
	if root == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get cache directory: %w", err)
		}
		root = filepath.Join(base, AppDir)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{root: root, logger: logger}, nil
}

// Root returns the cache root
func (s *Store) Root() string {
	return s.root
}

// Dirs returns the managed cache directories, creating them if needed
func (s *Store) Dirs() ([]string, error) {
	dirs := []string{
		filepath.Join(s.root, ThumbnailsDir),
		filepath.Join(s.root, PreviewsDir),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
	}
	return dirs, nil
}

// Size returns the total bytes held by the cache
func (s *Store) Size(ctx context.Context) (int64, error) {
	dirs, err := s.Dirs()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, dir := range dirs {
		size, _, err := filesystem.TreeSize(ctx, dir, 0)
		if err != nil {
			return 0, err
		}
		total += size
	}
	return total, nil
}

// Clear empties the cache directories but keeps them in place
func (s *Store) Clear(ctx context.Context) error {
	dirs, err := s.Dirs()
	if err != nil {
		return err
	}

	var errs error
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			errs = multierr.Append(errs, os.RemoveAll(filepath.Join(dir, entry.Name())))
		}
	}
	if errs == nil {
		s.logger.Info("Cache cleared", zap.String("root", s.root))
	}
	return errs
}

// EvictResult describes one eviction pass
type EvictResult struct {
	Before  int64 `json:"before"`
	After   int64 `json:"after"`
	Removed int   `json:"removed"`
}

type cachedFile struct {
	path     string
	size     int64
	modified time.Time
}

// Enforce removes the oldest files until the cache holds at most maxBytes.
// Files that cannot be removed are skipped.
func (s *Store) Enforce(ctx context.Context, maxBytes int64) (EvictResult, error) {
	dirs, err := s.Dirs()
	if err != nil {
		return EvictResult{}, err
	}

	files, err := collect(ctx, dirs)
	if err != nil {
		return EvictResult{}, err
	}

	var current int64
	for _, f := range files {
		current += f.size
	}
	result := EvictResult{Before: current, After: current}
	if current <= maxBytes {
		return result, nil
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modified.Before(files[j].modified)
	})

	for _, f := range files {
		if result.After <= maxBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			s.logger.Warn("Failed to remove cache file", zap.String("path", f.path), zap.Error(err))
			continue
		}
		result.After -= f.size
		result.Removed++
	}

	s.logger.Info("Cache limit enforced",
		zap.Int64("max_bytes", maxBytes),
		zap.Int64("before", result.Before),
		zap.Int64("after", result.After),
		zap.Int("removed", result.Removed))
	return result, nil
}

// collect lists every regular file below dirs with its size and mtime
func collect(ctx context.Context, dirs []string) ([]cachedFile, error) {
	var (
		mu    sync.Mutex
		files []cachedFile
	)

	conf := fastwalk.Config{Follow: false}
	for _, dir := range dirs {
		err := fastwalk.Walk(&conf, dir, func(path string, de fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil || !de.Type().IsRegular() {
				return nil
			}
			info, err := de.Info()
			if err != nil {
				return nil
			}

			mu.Lock()
			files = append(files, cachedFile{path: path, size: info.Size(), modified: info.ModTime()})
			mu.Unlock()
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
