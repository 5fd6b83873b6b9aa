package thumb

import (
	"os"
	"path/filepath"
)

const DefaultTimestamp = "10%"

// Options control a single lookup or generation call.
// Zero values mean "not set" and are filled in by Merge.
type Options struct {
	// ForceCreate skips the cache check and always regenerates.
	// It only ever comes from the caller, Merge does not inherit it.
	ForceCreate bool
	// Size is the bounding box of the thumbnail.
	Size ThumbSize
	// Mimetype overrides detection from the file name.
	Mimetype string
	// CacheRoot is the directory holding per-size thumbnail directories.
	CacheRoot string
	// Timestamp is the video position to take the frame from,
	// either a percentage of the duration ("10%"), seconds or [hh:]mm:ss.
	Timestamp string
}

// DefaultOptions returns built-in defaults: large size, 10% timestamp and
// a cache under the user cache directory.
func DefaultOptions() Options {
	return Options{
		Size:      SizeLarge(),
		CacheRoot: defaultCacheRoot(),
		Timestamp: DefaultTimestamp,
	}
}

// Merge returns a copy of o with unset fields taken from defaults.
// ForceCreate is kept as the caller set it.
func (o Options) Merge(defaults Options) Options {
	m := o
	if m.Size.IsZero() {
		m.Size = defaults.Size
	}
	if m.Mimetype == "" {
		m.Mimetype = defaults.Mimetype
	}
	if m.CacheRoot == "" {
		m.CacheRoot = defaults.CacheRoot
	}
	if m.Timestamp == "" {
		m.Timestamp = defaults.Timestamp
	}
	return m
}

// CacheDir is where thumbnails of o.Size live.
func (o Options) CacheDir() string {
	return filepath.Join(o.CacheRoot, o.Size.Name)
}

func defaultCacheRoot() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "thumbnailer")
}
