package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/types"
)

// ErrFFmpegUnavailable is returned while repeated launch failures have
// tripped the breaker.
var ErrFFmpegUnavailable = errors.New("ffmpeg is unavailable, try again shortly")

// Provider extracts video thumbnails with an external ffmpeg
type Provider struct {
	locator *Locator
	run     Runner
	breaker *resilience.Breaker
	logger  *zap.Logger
}

// Option configures a Provider
type Option func(*Provider)

// WithRunner replaces the command runner
func WithRunner(run Runner) Option {
	return func(p *Provider) { p.run = run }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Provider) { p.logger = l.Named("media") }
}

// WithBreaker replaces the breaker guarding ffmpeg launches
func WithBreaker(b *resilience.Breaker) Option {
	return func(p *Provider) { p.breaker = b }
}

// NewProvider creates a media provider
func NewProvider(locator *Locator, opts ...Option) *Provider {
	p := &Provider{
		locator: locator,
		run:     execRunner,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.breaker == nil {
		p.breaker = resilience.New("ffmpeg", resilience.Settings{
			Threshold:     3,
			Cooldown:      30 * time.Second,
			Counts:        isLaunchFailure,
			OnStateChange: p.logBreaker,
		})
	}
	return p
}

// isLaunchFailure separates ffmpeg not starting from ffmpeg rejecting one
// file, which says nothing about the next.
func isLaunchFailure(err error) bool {
	var exitErr *exec.ExitError
	return !errors.As(err, &exitErr) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func (p *Provider) logBreaker(name string, from, to resilience.State) {
	p.logger.Warn("Circuit breaker state changed",
		zap.String("breaker", name),
		zap.Stringer("from", from),
		zap.Stringer("to", to))
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:           "media",
		Name:         "Media Service",
		Description:  "Video thumbnail extraction through ffmpeg",
		Category:     types.CategoryMedia,
		Capabilities: []string{"thumbnail", "video"},
		Tools: []types.Tool{
			{
				ID:          "media.thumbnail",
				Name:        "Video Thumbnail",
				Description: "Extract the first frame of a video as a 200x200 PNG, base64 encoded",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Video file path", Required: true},
				},
				Returns: "string",
			},
			{
				ID:          "media.ffmpeg",
				Name:        "Locate FFmpeg",
				Description: "Report the ffmpeg executable that thumbnails will use",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
		},
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	switch toolID {
	case "media.thumbnail":
		return p.thumbnail(ctx, params)
	case "media.ffmpeg":
		return p.ffmpeg()
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}

func (p *Provider) thumbnail(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path, _ := params["path"].(string)
	if path == "" {
		return types.Failure("path parameter required")
	}

	data, err := p.Thumbnail(ctx, path)
	if err != nil {
		return types.Failure(err.Error())
	}

	result := map[string]interface{}{
		"data":      base64.StdEncoding.EncodeToString(data),
		"mime_type": "image/png",
	}
	if mt, err := mimetype.DetectFile(path); err == nil {
		result["source_mime"] = mt.String()
	}
	return types.Success(result)
}

func (p *Provider) ffmpeg() (*types.Result, error) {
	path, err := p.locator.Find()
	if err != nil {
		return types.Success(map[string]interface{}{"available": false})
	}
	return types.Success(map[string]interface{}{"available": true, "path": path})
}

// Thumbnail returns PNG bytes of the first frame of the video at path
func (p *Provider) Thumbnail(ctx context.Context, path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("video not found: %w", err)
	}

	ffmpeg, err := p.locator.Find()
	if err != nil {
		return nil, err
	}

	out, err := tempThumbnailPath()
	if err != nil {
		return nil, err
	}
	defer os.Remove(out)

	output, err := resilience.Execute(p.breaker, func() ([]byte, error) {
		return p.run(ctx, ffmpeg, thumbnailArgs(path, out)...)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, ErrFFmpegUnavailable
	}
	if err != nil {
		p.logger.Warn("ffmpeg failed",
			zap.String("path", path),
			zap.String("output", lastLine(output)),
			zap.Error(err))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.New("Failed to extract video frame")
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read thumbnail: %w", err)
	}
	return data, nil
}
