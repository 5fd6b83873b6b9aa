package video

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lbryio/thumbnailer/thumb"

	"github.com/floostack/transcoder/ffmpeg"
)

const codecTypeVideo = "video"

// ffprobe reports these when the container carries no aspect ratio at all.
var unspecifiedAspectRatios = map[string]bool{
	"0:1": true,
	"N/A": true,
}

// Dimension is the display size of a video stream, with any
// non-square pixel aspect already applied.
type Dimension struct {
	Width, Height float64
}

// Resolution is the pixel size of a thumbnail.
type Resolution struct {
	Width, Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%vx%v", r.Width, r.Height)
}

// GetVideoDimension returns the display dimension of the first video stream in meta.
// A display aspect ratio W:H rescales the height to width*H/W, otherwise
// the raw stream size is returned.
func GetVideoDimension(meta *ffmpeg.Metadata) (Dimension, error) {
	if meta == nil {
		return Dimension{}, ErrNoVideoStream
	}
	for _, s := range meta.Streams {
		if s.CodecType != codecTypeVideo {
			continue
		}
		raw := Dimension{Width: float64(s.Width), Height: float64(s.Height)}
		dar := strings.TrimSpace(s.DisplayAspectRatio)
		if dar == "" || unspecifiedAspectRatios[dar] {
			return raw, nil
		}
		w, h, err := parseAspectRatio(dar)
		if err != nil {
			return Dimension{}, err
		}
		if w == 0 || h == 0 {
			return raw, nil
		}
		return Dimension{Width: raw.Width, Height: raw.Width * h / w}, nil
	}
	return Dimension{}, ErrNoVideoStream
}

func parseAspectRatio(dar string) (float64, float64, error) {
	parts := strings.Split(dar, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedAspectRatio, dar)
	}
	w, err := strconv.ParseFloat(parts[0], 64)
	if err != nil || w < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedAspectRatio, dar)
	}
	h, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || h < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedAspectRatio, dar)
	}
	return w, h, nil
}

// OptimalResolution fits dim inside box keeping its aspect ratio.
// The longer side of dim is pinned to the matching side of box.
func OptimalResolution(dim Dimension, box thumb.ThumbSize) (Resolution, error) {
	if box.Width <= 0 || box.Height <= 0 {
		return Resolution{}, fmt.Errorf("%w: %v", ErrInvalidTargetBoundary, box)
	}
	if !(dim.Width > 0) || !(dim.Height > 0) || math.IsInf(dim.Width, 0) || math.IsInf(dim.Height, 0) {
		return Resolution{}, fmt.Errorf("%w: %vx%v", ErrInvalidDimension, dim.Width, dim.Height)
	}
	if dim.Width > dim.Height {
		return Resolution{
			Width:  box.Width,
			Height: atLeastOne(math.Round(float64(box.Width) * dim.Height / dim.Width)),
		}, nil
	}
	return Resolution{
		Width:  atLeastOne(math.Round(float64(box.Height) * dim.Width / dim.Height)),
		Height: box.Height,
	}, nil
}

func atLeastOne(v float64) int {
	if v < 1 {
		return 1
	}
	return int(v)
}
