package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	EndpointGenerate = "generate"
	EndpointLookup   = "lookup"
)

var (
	HTTPAPIRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_http_api_requests",
			Help:    "Method call latency distributions",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.4, 1, 2, 5, 10},
		},
		[]string{"status_code"},
	)

	ThumbnailsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thumbnailer_thumbnails_served",
		Help: "Successful thumbnail responses by endpoint",
	}, []string{"endpoint"})
)
