package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "backoffice"

// PrometheusRecorder exposes metrics through a Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	provisioned      *prometheus.CounterVec
	provisioningTime prometheus.Histogram
	rollbacks        *prometheus.CounterVec
	orphansEnqueued  prometheus.Counter
	orphansSwept     *prometheus.CounterVec
	orphanQueueDepth prometheus.Gauge
	mutations        *prometheus.CounterVec
}

// NewPrometheus creates a recorder backed by its own registry.
// Go runtime and process collectors are registered alongside.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()

	p := &PrometheusRecorder{
		registry: reg,
		provisioned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_provisioned_total",
			Help:      "User provisioning attempts by outcome.",
		}, []string{"outcome"}),
		provisioningTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "user_provisioning_duration_seconds",
			Help:      "Time spent provisioning a user, including rollback.",
			Buckets:   prometheus.DefBuckets,
		}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provisioning_rollbacks_total",
			Help:      "Compensating identity deletes by status.",
		}, []string{"status"}),
		orphansEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_identities_enqueued_total",
			Help:      "Identities handed to the sweeper after a failed rollback.",
		}),
		orphansSwept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_identities_swept_total",
			Help:      "Sweeper outcomes by status.",
		}, []string{"status"}),
		orphanQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orphan_identities_queue_depth",
			Help:      "Pending plus unread entries on the orphan stream.",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Create, update and delete operations by entity.",
		}, []string{"entity", "op"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.provisioned,
		p.provisioningTime,
		p.rollbacks,
		p.orphansEnqueued,
		p.orphansSwept,
		p.orphanQueueDepth,
		p.mutations,
	)

	return p
}

// Handler returns the HTTP handler serving the exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// IncUserProvisioned counts a provisioning attempt by outcome.
func (p *PrometheusRecorder) IncUserProvisioned(outcome string) {
	p.provisioned.WithLabelValues(outcome).Inc()
}

// ObserveProvisioningDuration records provisioning duration.
func (p *PrometheusRecorder) ObserveProvisioningDuration(duration time.Duration) {
	p.provisioningTime.Observe(duration.Seconds())
}

// IncRollback counts a compensating delete.
func (p *PrometheusRecorder) IncRollback(status string) {
	p.rollbacks.WithLabelValues(status).Inc()
}

// IncOrphanEnqueued counts identities handed to the sweeper.
func (p *PrometheusRecorder) IncOrphanEnqueued() {
	p.orphansEnqueued.Inc()
}

// IncOrphanSwept counts sweeper outcomes.
func (p *PrometheusRecorder) IncOrphanSwept(status string) {
	p.orphansSwept.WithLabelValues(status).Inc()
}

// SetOrphanQueueDepth sets the current sweeper backlog.
func (p *PrometheusRecorder) SetOrphanQueueDepth(depth int64) {
	p.orphanQueueDepth.Set(float64(depth))
}

// IncMutation counts CRUD mutations.
func (p *PrometheusRecorder) IncMutation(entity, op string) {
	p.mutations.WithLabelValues(entity, op).Inc()
}
