package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики регистрируются в prometheus.DefaultRegisterer
// и отдаются на /metrics каждого сервиса.
var (
	// ScanCycles — количество циклов сканирования по результату (ok, error, skipped).
	ScanCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smarttweet_scheduler_cycles_total",
		Help: "Scan cycles run by the scheduler, by result",
	}, []string{"result"})

	// ScanDuration — длительность цикла сканирования.
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smarttweet_scheduler_cycle_duration_seconds",
		Help:    "Duration of a scheduler scan cycle",
		Buckets: prometheus.DefBuckets,
	})

	// DuePosts — количество записей, найденных в последнем цикле.
	DuePosts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smarttweet_scheduler_due_posts",
		Help: "Posts found due in the last scan cycle",
	})

	// PublishAttempts — попытки публикации по типу и результату (posted, failed, skipped).
	PublishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smarttweet_publish_attempts_total",
		Help: "Publish attempts by post kind and result",
	}, []string{"kind", "result"})

	// HTTPRequests — запросы к API по методу и коду ответа.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smarttweet_api_http_requests_total",
		Help: "Total HTTP requests handled by smarttweet-api",
	}, []string{"method", "status"})

	// NotificationsSent — события, переданные нотификатором.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smarttweet_notifier_events_total",
		Help: "Post events handled by the notifier, by type and result",
	}, []string{"type", "result"})
)
