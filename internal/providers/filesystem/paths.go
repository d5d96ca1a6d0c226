package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var errInvalidName = errors.New("name must be a single path element")

// uniquePath returns dir/name, or the first free "stem (n).ext" variant.
func uniquePath(dir, name string) string {
	candidate := filepath.Join(dir, name)
	if !exists(candidate) {
		return candidate
	}

	stem, ext := splitName(name)
	for i := 1; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if !exists(candidate) {
			return candidate
		}
	}
}

// splitName splits off the extension. Dotfiles like ".env" have none.
func splitName(name string) (string, string) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		return name, ""
	}
	return stem, ext
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// validateName rejects names that would escape the target directory
func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return errInvalidName
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return errInvalidName
	}
	return nil
}

// isWithin reports whether path is root or lies below it
func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
