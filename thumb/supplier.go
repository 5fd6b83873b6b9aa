package thumb

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ThumbnailExt is the extension of every generated thumbnail.
const ThumbnailExt = ".jpg"

// Supplier produces thumbnails for one media family.
// A supplier is bound to the Options it was built with and is used for a single call.
type Supplier interface {
	// ThumbnailLocation returns the deterministic cache path for file.
	ThumbnailLocation(file string) string
	// CreateThumbnail generates the thumbnail for file and returns its location.
	CreateThumbnail(ctx context.Context, file string) (string, error)
}

// Factory builds a Supplier from merged options.
type Factory func(opts Options) Supplier

// Base carries the state shared by all suppliers.
type Base struct {
	Size     ThumbSize
	CacheDir string
}

func NewBase(opts Options) Base {
	return Base{Size: opts.Size, CacheDir: opts.CacheDir()}
}

func (b Base) ThumbnailLocation(file string) string {
	return filepath.Join(b.CacheDir, ThumbnailFileName(file))
}

// ThumbnailFileName derives a cache file name from the absolute source path,
// so every process maps the same file to the same name.
func ThumbnailFileName(file string) string {
	p, err := filepath.Abs(file)
	if err != nil {
		p = filepath.Clean(file)
	}
	sum := md5.Sum([]byte(p))
	return hex.EncodeToString(sum[:]) + ThumbnailExt
}

// TempLocation returns a unique hidden sibling of path with the same extension.
// Suppliers write there first and rename into place once the image is complete.
func TempLocation(path string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	dir, name := filepath.Split(path)
	return filepath.Join(dir, "."+strings.TrimSuffix(name, filepath.Ext(name))+"."+id.String()+".tmp"+filepath.Ext(name))
}
