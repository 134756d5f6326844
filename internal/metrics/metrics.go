// file: internal/metrics/metrics.go
// version: 2.0.0
// guid: 9f8e7d6c-5b4a-3210-9fed-cba876543210

package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "anime_organizer"

var (
	registerOnce sync.Once

	filesScanned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_scanned_total",
		Help:      "Files seen during folder scans by result (matched, unmatched, excluded, known)",
	}, []string{"result"})
	matchConfidence = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "match_confidence",
		Help:      "Combined confidence of title matches",
		Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
	})
	catalogRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_requests_total",
		Help:      "Remote catalog requests by outcome",
	}, []string{"outcome"})
	batchDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batch_decisions_total",
		Help:      "Feed entries classified as batch or single episode",
	}, []string{"batch"})
	scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scan_duration_seconds",
		Help:      "Histogram of folder scan durations in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})
	catalogEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "catalog_entries",
		Help:      "Catalog entries currently held in memory",
	})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(filesScanned, matchConfidence, catalogRequests, batchDecisions,
			scanDuration, catalogEntries)
	})
}

// WriteFile dumps the default registry in text exposition format.
func WriteFile(path string) error {
	Register()
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

func IncFilesScanned(result string)    { filesScanned.WithLabelValues(result).Inc() }
func ObserveConfidence(c float64)      { matchConfidence.Observe(c) }
func IncCatalogRequest(outcome string) { catalogRequests.WithLabelValues(outcome).Inc() }
func IncBatchDecision(batch bool)      { batchDecisions.WithLabelValues(fmt.Sprint(batch)).Inc() }
func ObserveScanDuration(d time.Duration) {
	scanDuration.Observe(d.Seconds())
}

// Gauges
func SetCatalogEntries(n int) { catalogEntries.Set(float64(n)) }
