package video

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once = sync.Once{}

	ProbeFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "thumbnailer_video_probe_fallbacks",
		Help: "Video thumbnails extracted at the raw target box because probing failed",
	})
	FramesExtracted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "thumbnailer_video_frames_extracted",
		Help: "Frame extractions by status",
	}, []string{"status"})
)

func RegisterMetrics() {
	once.Do(func() {
		prometheus.MustRegister(ProbeFallbacks, FramesExtracted)
	})
}
