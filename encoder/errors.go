package encoder

import "errors"

var (
	ErrFFmpegNotFound    = errors.New("ffmpeg/ffprobe not found")
	ErrInvalidTimestamp  = errors.New("invalid timestamp")
	ErrInvalidResolution = errors.New("invalid output resolution")
	ErrNoFrame           = errors.New("ffmpeg produced no frame")
)
