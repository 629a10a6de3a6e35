// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package fwmetrics exposes Prometheus counters/histograms describing
// compiler activity: rules processed, diagnostics raised, and pass
// latency, for collaborators that scrape a compiler running as a service.
package fwmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter/histogram a compilation pass updates.
type Metrics struct {
	RulesCompiled   prometheus.Counter
	RulesDropped    *prometheus.CounterVec
	Diagnostics     *prometheus.CounterVec
	CompilationTime prometheus.Histogram
	ShadowedRules   prometheus.Counter
}

// NewMetrics constructs a fresh metric set, unregistered.
func NewMetrics() *Metrics {
	return &Metrics{
		RulesCompiled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fwcompile_rules_compiled_total",
			Help: "Total number of rules emitted into backend syntax.",
		}),
		RulesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fwcompile_rules_dropped_total",
			Help: "Rules dropped during compilation, by reason.",
		}, []string{"reason"}),
		Diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fwcompile_diagnostics_total",
			Help: "Diagnostics raised during compilation, by kind and severity.",
		}, []string{"kind", "severity"}),
		CompilationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fwcompile_pass_duration_seconds",
			Help:    "Wall-clock duration of one per-firewall, per-family compilation pass.",
			Buckets: prometheus.DefBuckets,
		}),
		ShadowedRules: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fwcompile_shadowed_rules_total",
			Help: "Rules found to be shadowed by an earlier rule.",
		}),
	}
}

// MustRegister registers every metric against reg.
func (m *Metrics) MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(m.RulesCompiled, m.RulesDropped, m.Diagnostics, m.CompilationTime, m.ShadowedRules)
}
