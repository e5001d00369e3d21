// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ClipsStored          prometheus.Counter
	ClipsRejected        prometheus.Counter
	NotificationsSent    prometheus.Counter
	NotificationsFailed  prometheus.Counter
	NotificationsSkipped prometheus.Counter
	DiscoveryEnqueued    prometheus.Counter
	DiscoveryProcessed   prometheus.Counter
	DiscoveryDropped     prometheus.Counter
	HydrationCalls       prometheus.Counter
	HighlightsPosted     prometheus.Counter
	HighlightsSkipped    prometheus.Counter
	LeaderboardPages     prometheus.Counter

	// Histograms (seconds)
	CompileDuration     prometheus.Observer
	LeaderboardDuration prometheus.Observer

	// Gauges
	DiscoveryQueueDepth prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ClipsStored = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_stored_total", Help: "Number of clip rows persisted"})
		ClipsRejected = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_rejected_total", Help: "Number of webhook requests rejected by validation"})
		NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_notifications_sent_total", Help: "Number of Discord notifications delivered"})
		NotificationsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_notifications_failed_total", Help: "Number of Discord notifications that errored"})
		NotificationsSkipped = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_notifications_skipped_total", Help: "Number of notifications skipped for missing data"})
		DiscoveryEnqueued = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_discovery_enqueued_total", Help: "Number of discovery jobs accepted"})
		DiscoveryProcessed = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_discovery_processed_total", Help: "Number of discovery jobs processed"})
		DiscoveryDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_discovery_dropped_total", Help: "Number of discovery jobs dropped (dedup, full buffer, blacklist)"})
		HydrationCalls = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_hydration_calls_total", Help: "Number of provider calls made to hydrate broadcast start times"})
		HighlightsPosted = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_highlights_posted_total", Help: "Number of highlight reports posted"})
		HighlightsSkipped = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_highlights_skipped_total", Help: "Number of highlight compile runs skipped or empty"})
		LeaderboardPages = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_leaderboard_pages_total", Help: "Number of chat transcript pages fetched"})
		CompileDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "clip_highlight_compile_duration_seconds", Help: "Highlight compile duration seconds", Buckets: prometheus.DefBuckets})
		LeaderboardDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "clip_leaderboard_duration_seconds", Help: "Leaderboard aggregation duration seconds", Buckets: prometheus.DefBuckets})
		DiscoveryQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{Name: "clip_discovery_queue_depth", Help: "Pending discovery jobs"})
	})
}

// SetDiscoveryQueueDepth records the number of pending discovery jobs.
func SetDiscoveryQueueDepth(n int) {
	if DiscoveryQueueDepth != nil {
		DiscoveryQueueDepth.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with the corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
