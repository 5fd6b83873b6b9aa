package imagethumb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	// Formats not registered by imaging itself
	_ "golang.org/x/image/webp"

	"github.com/lbryio/thumbnailer/thumb"

	"github.com/disintegration/imaging"
)

const jpegQuality = 85

// Supplier scales still images down into the thumbnail cache.
type Supplier struct {
	thumb.Base
}

func Factory() thumb.Factory {
	return func(opts thumb.Options) thumb.Supplier {
		return &Supplier{Base: thumb.NewBase(opts)}
	}
}

// CreateThumbnail decodes file, fits it inside the target box and stores it as JPEG.
// Images smaller than the box are not upscaled.
func (s *Supplier) CreateThumbnail(ctx context.Context, file string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src, err := imaging.Open(file, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("cannot decode %v: %w", file, err)
	}
	img := imaging.Fit(src, s.Size.Width, s.Size.Height, imaging.Lanczos)

	out := s.ThumbnailLocation(file)
	if err := os.MkdirAll(filepath.Dir(out), os.ModePerm); err != nil {
		return "", err
	}
	tmp := thumb.TempLocation(out)
	defer os.Remove(tmp)
	if err := imaging.Save(img, tmp, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("cannot save thumbnail: %w", err)
	}
	if err := os.Rename(tmp, out); err != nil {
		return "", err
	}
	logger.Debugw("thumbnail created", "file", file, "path", out, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return out, nil
}
