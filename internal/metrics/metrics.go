// Package metrics holds the Prometheus collectors of the studio.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_image_cache_lookups_total",
			Help: "Paged image cache lookups by result (hit or miss)",
		},
		[]string{"result"},
	)
	idListFetches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studio_image_id_list_fetches_total",
			Help: "Full image id list fetches issued by the paged image cache",
		},
	)
	prefetchedImages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studio_prefetched_images_total",
			Help: "Images loaded into the paged image cache by prefetch",
		},
	)
	prefetchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studio_prefetch_failures_total",
			Help: "Prefetch windows that failed and were discarded",
		},
	)
	debouncedWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_debounced_writes_total",
			Help: "Debounced annotation updates sent to storage, by result",
		},
		[]string{"result"},
	)
	refetchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "studio_annotation_refetch_latency_ms",
			Help:    "Latency of full annotation list re-fetches in milliseconds",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)
	openSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studio_open_sessions",
			Help: "Editing sessions currently open on the server",
		},
	)
)

func CacheHit()  { cacheLookups.WithLabelValues("hit").Inc() }
func CacheMiss() { cacheLookups.WithLabelValues("miss").Inc() }

func IDListFetched() { idListFetches.Inc() }

func Prefetched(n int) { prefetchedImages.Add(float64(n)) }
func PrefetchFailed()  { prefetchFailures.Inc() }

// DebouncedWrite records the outcome of a debounced persistence write
func DebouncedWrite(err error) {
	if err != nil {
		debouncedWrites.WithLabelValues("error").Inc()
		return
	}
	debouncedWrites.WithLabelValues("ok").Inc()
}

// ObserveRefetch records how long a re-fetch took since start
func ObserveRefetch(start time.Time) {
	refetchLatency.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}

func SessionOpened() { openSessions.Inc() }
func SessionClosed() { openSessions.Dec() }
