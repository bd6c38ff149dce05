package media

import (
	"path/filepath"
	"strings"
	"time"
)

// EventKind represents the type of file system event
type EventKind string

const (
	// Created fires when a file appears in the source directory. During a
	// network copy this arrives before the content does.
	Created EventKind = "created"
	// Written fires when a writer closes the file. Network transfers emit
	// many of these per file.
	Written EventKind = "written"
	// MovedIn fires when a file is moved into the source directory. The
	// move is atomic, so the file is already complete.
	MovedIn EventKind = "moved_in"
)

// Event represents a single file system event on a watched path
type Event struct {
	Path string
	Kind EventKind
	Time time.Time
}

// acceptedExtensions is the set of media file types worth organizing.
var acceptedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".mpg":  true,
	".mp4":  true,
	".png":  true,
	".mov":  true,
	".thm":  true,
	".avi":  true,
	".raw":  true,
	".arw":  true,
	".heic": true,
	".heif": true,
	".nef":  true,
	".3gp":  true,
}

// Accepted reports whether the path has a media extension we care about.
// The check is case-insensitive and pure.
func Accepted(path string) bool {
	return acceptedExtensions[strings.ToLower(filepath.Ext(path))]
}

// ImageExtension reports whether the path looks like a still image, used to
// decide whether a thumbnail should be generated after a rename.
func ImageExtension(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".heic", ".heif":
		return true
	}
	return false
}
