// Package media provides video thumbnail extraction.
//
// Thumbnails are produced by an external ffmpeg process writing a PNG into
// a temporary folder; the file is read back and deleted.
package media
