// Package cache manages the on-disk thumbnail and video preview cache.
//
// The cache lives in the user cache directory under com.devtoolkit.app, split
// into thumbnails/ and video_previews/. Enforce evicts by modification time,
// oldest first.
package cache
