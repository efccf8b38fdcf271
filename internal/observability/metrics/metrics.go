package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the demo-request pipeline.
type IntakeMetrics struct {
	submissionsTotal *prometheus.CounterVec
	emailTotal       *prometheus.CounterVec
	storeLatency     *prometheus.HistogramVec
	rateLimited      prometheus.Counter
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskdesk",
			Subsystem: "intake",
			Name:      "submissions_total",
			Help:      "Demo request submissions by outcome",
		}, []string{"outcome"}),
		emailTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskdesk",
			Subsystem: "intake",
			Name:      "email_total",
			Help:      "Confirmation email attempts by status",
		}, []string{"status"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "riskdesk",
			Subsystem: "intake",
			Name:      "store_seconds",
			Help:      "Latency of submission store appends",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskdesk",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.emailTotal, m.storeLatency, m.rateLimited)
	return m
}

// ObserveSubmission counts a finished submission. outcome is one of
// accepted, invalid, spam, error.
func (m *IntakeMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *IntakeMetrics) ObserveEmail(sent bool) {
	if m == nil {
		return
	}
	status := "failed"
	if sent {
		status = "sent"
	}
	m.emailTotal.WithLabelValues(status).Inc()
}

func (m *IntakeMetrics) ObserveStoreLatency(backend string, seconds float64) {
	if m == nil {
		return
	}
	m.storeLatency.WithLabelValues(backend).Observe(seconds)
}

func (m *IntakeMetrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
