package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// ErrFFmpegNotFound is returned when no ffmpeg binary can be located
var ErrFFmpegNotFound = errors.New("FFmpeg not found. Please ensure FFmpeg is installed and in your PATH.")

// ThumbnailSize is the edge length of generated thumbnails in pixels
const ThumbnailSize = 200

// windowsFFmpegPaths are common install locations checked after PATH
var windowsFFmpegPaths = []string{
	`C:\ffmpeg\ffmpeg.exe`,
	`C:\ffmpeg\bin\ffmpeg.exe`,
	`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
	`C:\Program Files (x86)\ffmpeg\bin\ffmpeg.exe`,
}

// Runner executes a command to completion and returns its combined output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Locator finds the ffmpeg executable
type Locator struct {
	override string
	goos     string
	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
}

// NewLocator creates a locator. A non-empty override is used as is.
func NewLocator(override string) *Locator {
	return &Locator{
		override: override,
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		stat:     os.Stat,
	}
}

// Find returns the ffmpeg path: override, then PATH, then well-known
// Windows install folders.
func (l *Locator) Find() (string, error) {
	if l.override != "" {
		return l.override, nil
	}
	if path, err := l.lookPath("ffmpeg"); err == nil {
		return path, nil
	}
	if l.goos == "windows" {
		for _, candidate := range windowsFFmpegPaths {
			if _, err := l.stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}
	return "", ErrFFmpegNotFound
}

// thumbnailArgs extracts the first frame, letterboxed into a square PNG
func thumbnailArgs(input, output string) []string {
	size := ThumbnailSize
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		size, size, size, size,
	)
	return []string{"-i", input, "-vframes", "1", "-vf", filter, "-y", output}
}

// tempThumbnailPath returns a fresh PNG path in the shared temp folder
func tempThumbnailPath() (string, error) {
	dir := filepath.Join(os.TempDir(), "dev-toolkit-thumbs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	return filepath.Join(dir, "thumb_"+uuid.NewString()+".png"), nil
}

// lastLine trims ffmpeg's banner-heavy output to its final message
func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
