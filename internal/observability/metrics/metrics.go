// Package metrics registers the Prometheus instruments shared by the
// services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Metrics struct {
	Registry *prometheus.Registry

	// CascadeRecomputes counts progress recomputations by level (site, project).
	CascadeRecomputes *prometheus.CounterVec

	// AuthzDecisions counts capability evaluations by action and outcome.
	AuthzDecisions *prometheus.CounterVec

	// TaskEventsPublished counts outbox events delivered to handlers.
	TaskEventsPublished prometheus.Counter

	// PayrollMissingStructure counts pricings that degraded to zero because no
	// salary structure matched the assignment.
	PayrollMissingStructure prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: registry,
		CascadeRecomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldtrack",
			Name:      "cascade_recomputes_total",
			Help:      "Progress recomputations performed, by aggregation level.",
		}, []string{"level"}),
		AuthzDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldtrack",
			Name:      "authz_decisions_total",
			Help:      "Capability decisions, by action and outcome.",
		}, []string{"action", "outcome"}),
		TaskEventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldtrack",
			Name:      "task_events_published_total",
			Help:      "Task outbox events delivered to all handlers.",
		}),
		PayrollMissingStructure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldtrack",
			Name:      "payroll_missing_structure_total",
			Help:      "Pricings that fell back to zero for lack of a salary structure.",
		}),
	}
	registry.MustRegister(
		m.CascadeRecomputes,
		m.AuthzDecisions,
		m.TaskEventsPublished,
		m.PayrollMissingStructure,
	)
	return m
}
