package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gro_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gro_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Fan-out metrics
	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gro_live_connections",
			Help: "Currently subscribed room connections",
		},
	)

	Broadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gro_broadcasts_total",
			Help: "Total broadcast calls",
		},
	)

	DeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gro_delivery_failures_total",
			Help: "Connections dropped after a failed send",
		},
	)

	// Business metrics
	UsersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gro_users_registered_total",
			Help: "Total users registered",
		},
	)

	MessagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gro_messages_posted_total",
			Help: "Total messages posted",
		},
		[]string{"kind"}, // "human" or "bot"
	)

	Augmentations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gro_augmentations_total",
			Help: "Finished bot augmentation tasks",
		},
		[]string{"outcome"}, // "ok", "llm_error" or "store_error"
	)

	AugmentationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gro_augmentations_in_flight",
			Help: "Augmentation tasks currently running",
		},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gro_llm_request_duration_seconds",
			Help:    "Model provider call latency",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "outcome"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gro_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gro_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	CacheReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gro_tail_cache_reads_total",
			Help: "Recent-message reads by cache result",
		},
		[]string{"result"}, // "hit" or "miss"
	)
)
