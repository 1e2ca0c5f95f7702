package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder defines the bracket events worth counting
type Recorder interface {
	BracketGenerated(format string, teams int)
	ResultReported(format, outcome string, duration time.Duration)
	BracketCompleted(format string)
	CacheLookup(hit bool)
}

// NoOp is used when metrics aren't needed, mostly in tests
type NoOp struct{}

func (NoOp) BracketGenerated(format string, teams int)                     {}
func (NoOp) ResultReported(format, outcome string, duration time.Duration) {}
func (NoOp) BracketCompleted(format string)                                {}
func (NoOp) CacheLookup(hit bool)                                          {}

type Prometheus struct {
	generated      *prometheus.CounterVec
	teams          prometheus.Histogram
	results        *prometheus.CounterVec
	resultDuration *prometheus.HistogramVec
	completed      *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
}

// NewPrometheus registers the bracket collectors on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)

	return &Prometheus{
		generated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bracket_generated_total",
			Help: "Brackets generated, by format.",
		}, []string{"format"}),
		teams: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bracket_teams",
			Help:    "Number of teams per generated bracket.",
			Buckets: prometheus.ExponentialBuckets(2, 2, 8),
		}),
		results: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bracket_results_total",
			Help: "Reported match results, by format and outcome.",
		}, []string{"format", "outcome"}),
		resultDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bracket_result_duration_seconds",
			Help:    "Time spent applying a match result.",
			Buckets: prometheus.DefBuckets,
		}, []string{"format"}),
		completed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bracket_completed_total",
			Help: "Brackets that produced a champion, by format.",
		}, []string{"format"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bracket_cache_lookups_total",
			Help: "Bracket cache lookups, by result.",
		}, []string{"result"}),
	}
}

func (m *Prometheus) BracketGenerated(format string, teams int) {
	m.generated.WithLabelValues(format).Inc()
	m.teams.Observe(float64(teams))
}

func (m *Prometheus) ResultReported(format, outcome string, duration time.Duration) {
	m.results.WithLabelValues(format, outcome).Inc()
	m.resultDuration.WithLabelValues(format).Observe(duration.Seconds())
}

func (m *Prometheus) BracketCompleted(format string) {
	m.completed.WithLabelValues(format).Inc()
}

func (m *Prometheus) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// NewRegistry returns a registry with the Go runtime and process collectors already registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
