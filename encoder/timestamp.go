package encoder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var clockPattern = regexp.MustCompile(`^(\d+:)?\d{1,2}:\d{1,2}(\.\d+)?$`)

// ResolveTimestamp converts a timestamp value into something ffmpeg -ss accepts.
// Percentages are taken of duration (seconds); with an unknown duration they
// resolve to the first frame. Seconds and [hh:]mm:ss[.ms] are passed through.
func ResolveTimestamp(ts string, duration float64) (string, error) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return "0", nil
	}
	if strings.HasSuffix(ts, "%") {
		p, err := strconv.ParseFloat(strings.TrimSuffix(ts, "%"), 64)
		if err != nil || p < 0 || p > 100 {
			return "", fmt.Errorf("%w: %q", ErrInvalidTimestamp, ts)
		}
		if duration <= 0 {
			return "0", nil
		}
		return strconv.FormatFloat(duration*p/100, 'f', 3, 64), nil
	}
	if s, err := strconv.ParseFloat(ts, 64); err == nil {
		if s < 0 {
			return "", fmt.Errorf("%w: %q", ErrInvalidTimestamp, ts)
		}
		return ts, nil
	}
	if clockPattern.MatchString(ts) {
		return ts, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimestamp, ts)
}
