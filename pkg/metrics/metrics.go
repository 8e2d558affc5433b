package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Market-data fetch metrics
	QuoteFetchCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stockchat_quote_fetch_total",
			Help: "Total market-data fetches attempted",
		})
	QuoteFetchErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stockchat_quote_fetch_errors_total",
			Help: "Market-data fetch failures",
		})
	QuoteFetchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockchat_quote_fetch_latency_seconds",
			Help:    "Time to fetch one quote window",
			Buckets: prometheus.DefBuckets,
		})

	// Chat completion metrics
	ChatCompletionCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stockchat_chat_completions_total",
			Help: "Total chat completions requested",
		})
	ChatCompletionErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stockchat_chat_completion_errors_total",
			Help: "Chat completion failures",
		})
	ChatCompletionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockchat_chat_completion_latency_seconds",
			Help:    "Time to produce one assistant message",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30},
		})

	// Quote cache metrics
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stockchat_quote_cache_hits_total",
			Help: "Quote windows served from the cache",
		})
	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stockchat_quote_cache_misses_total",
			Help: "Quote windows not found in the cache",
		})
	RedisOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockchat_redis_operation_duration_seconds",
			Help:    "Redis operation duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)
	RedisErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockchat_redis_errors_total",
			Help: "Total Redis errors",
		},
		[]string{"operation"},
	)

	// API metrics
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockchat_api_request_duration_seconds",
			Help:    "API request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)
	APIRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockchat_api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Session metrics
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockchat_active_sessions",
			Help: "Number of live chat sessions",
		})
	SessionTokenErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockchat_session_token_errors_total",
			Help: "Session token issue/verify failures",
		},
		[]string{"operation"},
	)
)

func init() {
	// MustRegister panics on duplicate registration
	prometheus.MustRegister(
		QuoteFetchCounter, QuoteFetchErrors, QuoteFetchLatency,
		ChatCompletionCounter, ChatCompletionErrors, ChatCompletionLatency,
		CacheHits, CacheMisses,
		RedisOperationDuration, RedisErrors,
		APIRequestDuration, APIRequestTotal,
		ActiveSessions, SessionTokenErrors,
	)
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
