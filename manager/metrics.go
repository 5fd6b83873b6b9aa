package manager

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	lookupHit     = "hit"
	lookupExpired = "expired"
	lookupMiss    = "miss"
	lookupError   = "error"

	creationOK     = "ok"
	creationFailed = "failed"
)

var (
	once = sync.Once{}

	Lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "thumbnailer_lookups",
		Help: "Thumbnail cache lookups by result",
	}, []string{"result"})

	Creations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "thumbnailer_creations",
		Help: "Thumbnail creations by status",
	}, []string{"status"})

	CoalescedCreations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "thumbnailer_creations_coalesced",
		Help: "Creation requests that joined one already in flight",
	})

	CreationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "thumbnailer_creation_seconds",
		Help:    "Time spent creating a thumbnail",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"mimetype"})
)

func RegisterMetrics() {
	once.Do(func() {
		prometheus.MustRegister(Lookups, Creations, CoalescedCreations, CreationSeconds)
	})
}
