// Package metrics exposes Prometheus instrumentation for the approval
// workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registry workflow counters and gauges.
type Metrics struct {
	SubmissionsTotal   prometheus.Counter
	AssessmentsTotal   prometheus.Counter
	VotesTotal         *prometheus.CounterVec
	FinalizationsTotal *prometheus.CounterVec
	StatusUpdatesTotal *prometheus.CounterVec
	RiskScore          prometheus.Histogram
}

// New creates and registers the workflow metrics on the default registerer.
func New() *Metrics {
	return newWith(prometheus.DefaultRegisterer)
}

// NewForTesting registers on a private registry so parallel tests do not
// collide on duplicate registration.
func NewForTesting() *Metrics {
	return newWith(prometheus.NewRegistry())
}

func newWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SubmissionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hookwarden_submissions_total",
			Help: "Total number of hook submissions accepted",
		}),
		AssessmentsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hookwarden_assessments_total",
			Help: "Total number of risk assessments recorded",
		}),
		VotesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hookwarden_votes_total",
			Help: "Total number of governance ballots recorded",
		}, []string{"approve"}),
		FinalizationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hookwarden_finalizations_total",
			Help: "Total number of finalized submissions by outcome",
		}, []string{"status"}),
		StatusUpdatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hookwarden_status_updates_total",
			Help: "Total number of privileged status updates by target status",
		}, []string{"status"}),
		RiskScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hookwarden_risk_score",
			Help:    "Distribution of computed risk scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}

func (m *Metrics) IncrementSubmissions() { m.SubmissionsTotal.Inc() }
func (m *Metrics) IncrementAssessments() { m.AssessmentsTotal.Inc() }

func (m *Metrics) IncrementVotes(approve bool) {
	label := "false"
	if approve {
		label = "true"
	}
	m.VotesTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) IncrementFinalizations(status string) {
	m.FinalizationsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementStatusUpdates(status string) {
	m.StatusUpdatesTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveRiskScore(score uint8) {
	m.RiskScore.Observe(float64(score))
}
