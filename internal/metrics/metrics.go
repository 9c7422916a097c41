/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package metrics defines Prometheus metrics for the gateway.
//
// The gateway has no inbound HTTP surface (§5: the only channel is
// stdin/stdout line-delimited JSON-RPC), so metrics are not served over
// /metrics. Instead they're registered against a dedicated registry and
// rendered by the `status` CLI subcommand via a text-format dump.
//
// Metric naming follows Prometheus conventions:
//   - spfgate_ prefix for all custom metrics
//   - _total suffix for counters
package metrics

import (
	"bytes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

var (
	// CallsTotal counts gate pipeline calls by tool and tier.
	CallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spfgate_calls_total",
			Help: "Total tool calls processed by the gate pipeline, by tool and resulting tier.",
		},
		[]string{"tool", "tier"},
	)

	// DecisionsTotal counts allow/deny decisions by tool.
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spfgate_decisions_total",
			Help: "Total gate decisions by tool and outcome (allowed/blocked).",
		},
		[]string{"tool", "outcome"},
	)

	// RateLimitedTotal counts calls rejected at the rate-limit stage.
	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spfgate_rate_limited_total",
			Help: "Total calls rejected by the rate-limit stage, by category.",
		},
		[]string{"category"},
	)

	// EscalationsTotal counts Max-mode MAX TIER escalations.
	EscalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spfgate_escalations_total",
			Help: "Total decisions escalated to CRITICAL tier under Max enforce mode.",
		},
		[]string{"tool"},
	)

	// ComplexityScore is a histogram of computed C values.
	ComplexityScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spfgate_complexity_score",
			Help:    "Distribution of computed SPF complexity scores (C).",
			Buckets: []float64{100, 500, 2000, 10000, 100000, 1000000},
		},
	)

	// SessionActionCount is the current session's action_count.
	SessionActionCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "spfgate_session_action_count",
			Help: "The current session's monotonically increasing action count.",
		},
	)
)

// Registry is the gateway's dedicated Prometheus registry — not the
// global default registry, since there is no HTTP /metrics endpoint to
// accidentally leak onto.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		CallsTotal,
		DecisionsTotal,
		RateLimitedTotal,
		EscalationsTotal,
		ComplexityScore,
		SessionActionCount,
	)
}

// RecordCall records one processed call's tool and resulting tier.
func RecordCall(tool, tier string) {
	CallsTotal.WithLabelValues(tool, tier).Inc()
}

// RecordDecision records the allow/block outcome for one tool call.
func RecordDecision(tool string, allowed bool) {
	outcome := "blocked"
	if allowed {
		outcome = "allowed"
	}
	DecisionsTotal.WithLabelValues(tool, outcome).Inc()
}

// RecordRateLimited records one rate-limit rejection.
func RecordRateLimited(category string) {
	RateLimitedTotal.WithLabelValues(category).Inc()
}

// RecordEscalation records one Max-mode CRITICAL escalation.
func RecordEscalation(tool string) {
	EscalationsTotal.WithLabelValues(tool).Inc()
}

// RecordComplexity records one call's computed C into the histogram.
func RecordComplexity(c float64) {
	ComplexityScore.Observe(c)
}

// SetSessionActionCount sets the session_action_count gauge.
func SetSessionActionCount(count float64) {
	SessionActionCount.Set(count)
}

// Dump renders the registry in Prometheus text exposition format, for
// the `status` CLI subcommand to print.
func Dump() (string, error) {
	families, err := Registry.Gather()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
