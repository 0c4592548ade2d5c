package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels conversions that produced a chain.
	OutcomeSuccess = "success"
	// OutcomeError labels conversions rejected by validation or extraction.
	OutcomeError = "error"

	// CacheHit and CacheMiss label legacy result cache lookups.
	CacheHit  = "hit"
	CacheMiss = "miss"
)

var (
	conversionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_failchain",
			Name:      "conversions_total",
			Help:      "Total number of failure chain conversions, partitioned by pipeline and outcome.",
		},
		[]string{"pipeline", "outcome"},
	)

	conversionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mirador_failchain",
			Name:      "conversion_seconds",
			Help:      "Conversion latency in seconds.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"pipeline"},
	)

	lengthMismatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mirador_failchain",
			Name:      "length_mismatches_total",
			Help:      "Legacy conversions whose message and stack trace counts disagreed.",
		},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_failchain",
			Name:      "cache_lookups_total",
			Help:      "Legacy result cache lookups, partitioned by result.",
		},
		[]string{"result"},
	)
)

// Register attaches mirador-failchain collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		conversionsTotal,
		conversionDurationSeconds,
		lengthMismatchesTotal,
		cacheLookupsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveConversion records a conversion duration and outcome for a pipeline.
func ObserveConversion(pipeline string, duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	conversionsTotal.WithLabelValues(pipeline, label).Inc()
	if duration < 0 {
		duration = 0
	}
	conversionDurationSeconds.WithLabelValues(pipeline).Observe(duration.Seconds())
}

// ObserveLengthMismatch counts a legacy chain with disagreeing sequence lengths.
func ObserveLengthMismatch() {
	lengthMismatchesTotal.Inc()
}

// ObserveCacheLookup counts a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if hit {
		cacheLookupsTotal.WithLabelValues(CacheHit).Inc()
		return
	}
	cacheLookupsTotal.WithLabelValues(CacheMiss).Inc()
}
