package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	deviceSyncs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "sync",
		Name:      "device_syncs_total",
		Help:      "Device sync attempts by provider and result.",
	}, []string{"provider", "result"})
	syncDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fitsync",
		Subsystem: "sync",
		Name:      "device_sync_duration_seconds",
		Help:      "Duration of a single device sync.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider"})
	lastBatchGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitsync",
		Subsystem: "sync",
		Name:      "last_batch_completed_timestamp_seconds",
		Help:      "Unix timestamp of the most recent completed batch sync.",
	})
	tokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "oauth",
		Name:      "token_refreshes_total",
		Help:      "Access token refresh attempts by provider and result.",
	}, []string{"provider", "result"})
	connects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "oauth",
		Name:      "connects_total",
		Help:      "Device connection attempts by provider and outcome kind.",
	}, []string{"provider", "outcome"})
	balances = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitsync",
		Subsystem: "balance",
		Name:      "computations_total",
		Help:      "Daily balance computations by source.",
	}, []string{"source"})
)

func init() {
	prometheus.MustRegister(deviceSyncs, syncDuration, lastBatchGauge, tokenRefreshes, connects, balances)
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordDeviceSync counts one device sync and observes its duration
func RecordDeviceSync(provider string, ok bool, duration time.Duration) {
	deviceSyncs.WithLabelValues(provider, result(ok)).Inc()
	syncDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordBatchCompleted updates the batch sync watermark gauge.
func RecordBatchCompleted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastBatchGauge.Set(float64(ts.Unix()))
}

// RecordTokenRefresh counts one refresh attempt
func RecordTokenRefresh(provider string, ok bool) {
	tokenRefreshes.WithLabelValues(provider, result(ok)).Inc()
}

// RecordConnect counts one connection attempt
func RecordConnect(provider, outcome string) {
	connects.WithLabelValues(provider, outcome).Inc()
}

// RecordBalance counts one balance computation; source is "server", "local" or "none"
func RecordBalance(source string) {
	balances.WithLabelValues(source).Inc()
}
