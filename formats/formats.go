package formats

import (
	"mime"
	"path/filepath"
	"strings"
)

const (
	FamilyVideo = "video"
	FamilyImage = "image"
)

// Extensions the system mime database tends to miss or get wrong.
var known = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
	".ts":   "video/mp2t",
	".m2ts": "video/mp2t",
	".3gp":  "video/3gpp",
	".ogv":  "video/ogg",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// Lookup returns the mimetype for filename judging by its extension only,
// or an empty string when the extension is unknown.
func Lookup(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return ""
	}
	if t, ok := known[ext]; ok {
		return t
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return strings.TrimSpace(strings.SplitN(t, ";", 2)[0])
}

// Family returns the top-level type of mimetype ("video" for "video/mp4").
func Family(mimetype string) string {
	return strings.SplitN(mimetype, "/", 2)[0]
}

// IsMedia tells if filename looks like something a thumbnail can be made of.
func IsMedia(filename string) bool {
	switch Family(Lookup(filename)) {
	case FamilyVideo, FamilyImage:
		return true
	}
	return false
}
