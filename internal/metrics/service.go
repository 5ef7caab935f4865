// Package metrics exposes Prometheus instrumentation for the leaderboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gwent-leaderboard/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// Service holds the leaderboard's Prometheus collectors
type Service struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	RankingQueries   *prometheus.CounterVec
	RankingDuration  prometheus.Histogram
	PlayerWrites     *prometheus.CounterVec
	StoreUnavailable prometheus.Counter
	LiveSubscribers  prometheus.Gauge
	IngestedMessages *prometheus.CounterVec
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gwent_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gwent_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RankingQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gwent_ranking_queries_total",
			Help: "Ranking queries by edition, time window and result.",
		}, []string{"edition", "window", "result"}),
		RankingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gwent_ranking_query_duration_seconds",
			Help:    "Latency of ranking queries against the player store.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		PlayerWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gwent_player_writes_total",
			Help: "Player writes by operation and result.",
		}, []string{"op", "result"}),
		StoreUnavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gwent_store_unavailable_total",
			Help: "Store calls that failed because the store could not be reached.",
		}),
		LiveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gwent_live_subscribers",
			Help: "Connected WebSocket clients.",
		}),
		IngestedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gwent_ingested_messages_total",
			Help: "Kafka player messages by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		s.HTTPRequests,
		s.HTTPDuration,
		s.RankingQueries,
		s.RankingDuration,
		s.PlayerWrites,
		s.StoreUnavailable,
		s.LiveSubscribers,
		s.IngestedMessages,
	)

	return s
}

// ObserveRanking records one ranking query
func (s *Service) ObserveRanking(edition domain.Edition, window domain.TimeWindow, d time.Duration, err error) {
	s.RankingQueries.WithLabelValues(string(edition), string(window), result(err)).Inc()
	s.RankingDuration.Observe(d.Seconds())
	s.countUnavailable(err)
}

// IncPlayerWrite records one player write
func (s *Service) IncPlayerWrite(op string, err error) {
	s.PlayerWrites.WithLabelValues(op, result(err)).Inc()
	s.countUnavailable(err)
}

// ObserveHTTP records one served request
func (s *Service) ObserveHTTP(method, route string, status int, d time.Duration) {
	s.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	s.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// SetLiveSubscribers sets the connected WebSocket client count
func (s *Service) SetLiveSubscribers(n int) {
	s.LiveSubscribers.Set(float64(n))
}

// IncIngested records one consumed Kafka message
func (s *Service) IncIngested(result string) {
	s.IngestedMessages.WithLabelValues(result).Inc()
}

func (s *Service) countUnavailable(err error) {
	if domain.IsStoreUnavailable(err) {
		s.StoreUnavailable.Inc()
	}
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsValidationError(err):
		return "invalid"
	case domain.IsNotFoundError(err):
		return "not_found"
	case domain.IsStoreUnavailable(err):
		return "unavailable"
	}
	return "error"
}
