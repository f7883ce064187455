// Package metrics provides Prometheus metrics for the QnA service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. Each server instance
// carries its own registry so tests can run servers side by side.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	QuestionsAskedTotal prometheus.Counter
	AnswersTotal        prometheus.Counter
	CommentsTotal       prometheus.Counter
	VotesTotal          *prometheus.CounterVec
	AcceptsTotal        prometheus.Counter
	SearchesTotal       prometheus.Counter
	WriteConflictsTotal prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qna_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qna_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.QuestionsAskedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "qna_questions_asked_total",
		Help: "Total number of questions created",
	})
	m.AnswersTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "qna_answers_total",
		Help: "Total number of answers attached",
	})
	m.CommentsTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "qna_comments_total",
		Help: "Total number of comments attached",
	})
	m.VotesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qna_votes_total",
			Help: "Total number of votes recorded",
		},
		[]string{"direction"},
	)
	m.AcceptsTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "qna_accepts_total",
		Help: "Total number of answer acceptances",
	})
	m.SearchesTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "qna_searches_total",
		Help: "Total number of search queries",
	})
	m.WriteConflictsTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "qna_write_conflicts_total",
		Help: "Total number of writes lost to a compare-and-swap race",
	})

	return m
}

// Handler serves this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
