package thumb

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownFiletype  = errors.New("unknown filetype")
	ErrThumbnailExpired = errors.New("thumbnail expired")
	ErrUnknownSize      = errors.New("unknown thumbnail size")
)

// UnknownFiletypeError means no supplier can handle the file, either because
// its mimetype could not be determined or because nothing is registered for it.
type UnknownFiletypeError struct {
	File     string
	Mimetype string
	Message  string
}

func (e *UnknownFiletypeError) Error() string {
	if e.Mimetype == "" {
		return fmt.Sprintf("%v: %v", e.File, e.Message)
	}
	return fmt.Sprintf("%v (%v): %v", e.File, e.Mimetype, e.Message)
}

func (e *UnknownFiletypeError) Is(target error) bool {
	return target == ErrUnknownFiletype
}

// ThumbnailExpiredError means a cached thumbnail is older than its source file.
type ThumbnailExpiredError struct {
	Path    string
	Message string
}

func (e *ThumbnailExpiredError) Error() string {
	return fmt.Sprintf("%v: %v", e.Path, e.Message)
}

func (e *ThumbnailExpiredError) Is(target error) bool {
	return target == ErrThumbnailExpired
}
