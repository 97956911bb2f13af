// Package metrics exposes Prometheus collectors for the AutoMesh core:
// automation executions, quota breaches and registered component counts.
// Collectors are created per Metrics instance (not package globals) so tests
// and embedded deployments can run several isolated cores in one process.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors observed by the engine and tenant registry.
// All observe methods are nil-receiver safe, so subsystems can hold an
// optional *Metrics without guarding every call site.
type Metrics struct {
	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	QuotaBreaches     *prometheus.CounterVec
	UsageTracked      *prometheus.CounterVec
	ComponentsActive  *prometheus.GaugeVec
}

// New creates the collector set under the given namespace (e.g. "automesh").
func New(namespace string) *Metrics {
	return &Metrics{
		ExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "automation_executions_total",
				Help:      "Total number of automation executions by terminal status",
			},
			[]string{"tenant", "status"},
		),
		ExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "automation_execution_duration_seconds",
				Help:      "Duration of automation executions in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tenant"},
		),
		QuotaBreaches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_breaches_total",
				Help:      "Total number of plan limit breaches by resource",
			},
			[]string{"tenant", "resource"},
		),
		UsageTracked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "usage_tracked_total",
				Help:      "Total number of tracked usage increments by resource",
			},
			[]string{"tenant", "resource"},
		),
		ComponentsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "components_registered",
				Help:      "Number of registered components by kind",
			},
			[]string{"kind"},
		),
	}
}

// Register attaches all collectors to the given registerer.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.ExecutionsTotal,
		m.ExecutionDuration,
		m.QuotaBreaches,
		m.UsageTracked,
		m.ComponentsActive,
	} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister attaches all collectors, panicking on collision.
func (m *Metrics) MustRegister(r prometheus.Registerer) {
	r.MustRegister(m.ExecutionsTotal, m.ExecutionDuration, m.QuotaBreaches, m.UsageTracked, m.ComponentsActive)
}

// ObserveExecution records one finished automation run.
func (m *Metrics) ObserveExecution(tenant, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.ExecutionsTotal.WithLabelValues(tenant, status).Inc()
	m.ExecutionDuration.WithLabelValues(tenant).Observe(dur.Seconds())
}

// ObserveQuotaBreach records a breached plan limit.
func (m *Metrics) ObserveQuotaBreach(tenant, resource string) {
	if m == nil {
		return
	}
	m.QuotaBreaches.WithLabelValues(tenant, resource).Inc()
}

// ObserveUsage records one tracked usage increment.
func (m *Metrics) ObserveUsage(tenant, resource string) {
	if m == nil {
		return
	}
	m.UsageTracked.WithLabelValues(tenant, resource).Inc()
}

// SetComponents records the current component count for a registry kind.
func (m *Metrics) SetComponents(kind string, n int) {
	if m == nil {
		return
	}
	m.ComponentsActive.WithLabelValues(kind).Set(float64(n))
}
