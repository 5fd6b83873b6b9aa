package video

import (
	"context"
	"path/filepath"

	"github.com/lbryio/thumbnailer/encoder"
	"github.com/lbryio/thumbnailer/thumb"

	"github.com/floostack/transcoder/ffmpeg"
)

// MediaTool probes media files and grabs still frames out of them.
// *encoder.Encoder implements it.
type MediaTool interface {
	Probe(ctx context.Context, file string) (*ffmpeg.Metadata, error)
	ExtractFrame(ctx context.Context, file string, opts encoder.FrameOptions) error
}

// Supplier makes thumbnails out of video frames.
type Supplier struct {
	thumb.Base
	timestamp string
	tool      MediaTool
}

// Factory returns a thumb.Factory building video suppliers around tool.
func Factory(tool MediaTool) thumb.Factory {
	return func(opts thumb.Options) thumb.Supplier {
		return NewSupplier(tool, opts)
	}
}

func NewSupplier(tool MediaTool, opts thumb.Options) *Supplier {
	ts := opts.Timestamp
	if ts == "" {
		ts = thumb.DefaultTimestamp
	}
	return &Supplier{
		Base:      thumb.NewBase(opts),
		timestamp: ts,
		tool:      tool,
	}
}

// Probe returns stream metadata for file, errors are passed through untouched.
func (s *Supplier) Probe(ctx context.Context, file string) (*ffmpeg.Metadata, error) {
	return s.tool.Probe(ctx, file)
}

// plan returns the thumbnail resolution for file along with the media duration in seconds.
func (s *Supplier) plan(ctx context.Context, file string) (Resolution, float64, error) {
	meta, err := s.Probe(ctx, file)
	if err != nil {
		return Resolution{}, 0, err
	}
	dim, err := GetVideoDimension(meta)
	if err != nil {
		return Resolution{}, 0, err
	}
	res, err := OptimalResolution(dim, s.Size)
	if err != nil {
		return Resolution{}, 0, err
	}
	return res, encoder.Duration(meta), nil
}

// CreateThumbnail extracts one frame of file at the configured timestamp into the cache.
// When the video cannot be probed, the frame is scaled to the raw target box instead.
func (s *Supplier) CreateThumbnail(ctx context.Context, file string) (string, error) {
	out := s.ThumbnailLocation(file)
	ll := logger.With("file", file, "size", s.Size.Name)

	res, duration, err := s.plan(ctx, file)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		ProbeFallbacks.Inc()
		ll.Warnw("probing failed, using target box resolution", "err", err)
		res = Resolution{Width: s.Size.Width, Height: s.Size.Height}
		duration = 0
	}

	err = s.tool.ExtractFrame(ctx, file, encoder.FrameOptions{
		Timestamp: s.timestamp,
		Duration:  duration,
		Width:     res.Width,
		Height:    res.Height,
		OutputDir: filepath.Dir(out),
		Filename:  filepath.Base(out),
	})
	if err != nil {
		FramesExtracted.WithLabelValues("failed").Inc()
		return "", err
	}
	FramesExtracted.WithLabelValues("ok").Inc()
	ll.Debugw("thumbnail created", "path", out, "resolution", res)
	return out, nil
}
