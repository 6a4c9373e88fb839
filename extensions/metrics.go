package extensions

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	datum "github.com/pumped-fn/datum-go"
)

const metricsNamespace = "datum"

// MetricsExtension counts propagation activity with prometheus collectors.
type MetricsExtension struct {
	datum.BaseExtension

	operations *prometheus.CounterVec
	changes    prometheus.Counter
	recursions prometheus.Counter
	links      *prometheus.CounterVec
	live       prometheus.Gauge
}

// NewMetricsExtension creates the collectors and registers them with reg.
func NewMetricsExtension(reg prometheus.Registerer) (*MetricsExtension, error) {
	e := &MetricsExtension{
		BaseExtension: datum.NewBaseExtension("metrics"),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Operations run, by kind.",
		}, []string{"op"}),
		changes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "changes_total",
			Help:      "Changed notifications emitted.",
		}),
		recursions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "recursions_dropped_total",
			Help:      "Nested updates dropped by the recursion guard.",
		}),
		links: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "link_events_total",
			Help:      "Link events, by outcome.",
		}, []string{"event"}),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "links_live",
			Help:      "Links currently attached.",
		}),
	}

	for _, c := range []prometheus.Collector{e.operations, e.changes, e.recursions, e.links, e.live} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering datum metrics: %w", err)
		}
	}
	return e, nil
}

func (e *MetricsExtension) Wrap(next func(), op *datum.Operation) {
	e.operations.WithLabelValues(string(op.Kind)).Inc()
	next()
}

func (e *MetricsExtension) OnChanged(d *datum.Datum) {
	e.changes.Inc()
}

func (e *MetricsExtension) OnRecursion(d *datum.Datum) {
	e.recursions.Inc()
}

func (e *MetricsExtension) OnLinkAdded(l *datum.Link) {
	e.links.WithLabelValues("added").Inc()
	e.live.Inc()
}

func (e *MetricsExtension) OnLinkDestroyed(l *datum.Link) {
	e.links.WithLabelValues("destroyed").Inc()
	e.live.Dec()
}

func (e *MetricsExtension) OnLinkRejected(l *datum.Link, target *datum.Datum, err error) {
	e.links.WithLabelValues("rejected").Inc()
}
