package filesystem

import (
	"go.uber.org/zap"
)

// DefaultSizeLimit caps the number of files a recursive size walk visits.
const DefaultSizeLimit = 1000

// Entry is one item of a directory listing
type Entry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	IsDir    bool   `json:"is_dir"`
	Size     int64  `json:"size,omitempty"`
	Modified int64  `json:"modified,omitempty"`
	MIME     string `json:"mime,omitempty"`
}

// FilesystemOps carries state shared by the operation groups
type FilesystemOps struct {
	Logger    *zap.Logger
	SizeLimit int
}

func (ops *FilesystemOps) logger() *zap.Logger {
	if ops == nil || ops.Logger == nil {
		return zap.NewNop()
	}
	return ops.Logger
}

func (ops *FilesystemOps) sizeLimit() int {
	if ops == nil || ops.SizeLimit <= 0 {
		return DefaultSizeLimit
	}
	return ops.SizeLimit
}

func stringParam(params map[string]interface{}, key string) string {
	s, _ := params[key].(string)
	return s
}
