package video

import "errors"

var (
	ErrNoVideoStream         = errors.New("no video stream found")
	ErrMalformedAspectRatio  = errors.New("malformed display aspect ratio")
	ErrInvalidDimension      = errors.New("invalid video dimension")
	ErrInvalidTargetBoundary = errors.New("invalid target box")
)
