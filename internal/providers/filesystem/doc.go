// Package filesystem provides the file manager operations.
//
// The package is split by concern:
//   - basic: read, write, base64 read, create file, delete
//   - directory: list, create directory, count, recursive size
//   - operations: rename, move, copy
//   - metadata: stat and MIME detection
//
// Paths are used as given; there is no sandbox. Creating, moving and copying
// never overwrite: a taken name becomes "name (1).ext", "name (2).ext" and so
// on. Hidden entries (leading dot) are left out of listings.
//
// Example Usage:
//
//	p := filesystem.NewProvider(logger, filesystem.DefaultSizeLimit)
//	result, err := p.Execute(ctx, "files.list", map[string]interface{}{"path": dir})
package filesystem
