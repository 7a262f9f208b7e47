package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type FlowMetrics struct {
	flows          *prometheus.CounterVec
	steps          *prometheus.CounterVec
	recordFailures *prometheus.CounterVec
}

var (
	flowOnce     sync.Once
	flowRegistry *FlowMetrics
)

// Flow returns the process-wide flow metrics, registering them on first use.
func Flow() *FlowMetrics {
	flowOnce.Do(func() {
		flowRegistry = newFlowMetrics()
		prometheus.MustRegister(
			flowRegistry.flows,
			flowRegistry.steps,
			flowRegistry.recordFailures,
		)
	})
	return flowRegistry
}

// NewUnregistered builds metrics that are not attached to the default registry (tests).
func NewUnregistered() *FlowMetrics { return newFlowMetrics() }

func newFlowMetrics() *FlowMetrics {
	return &FlowMetrics{
		flows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "financer_flow_total",
			Help: "Completed transaction flows by kind and outcome.",
		}, []string{"kind", "outcome"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "financer_flow_step_total",
			Help: "Flow steps entered by kind and step.",
		}, []string{"kind", "step"}),
		recordFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "financer_offchain_record_failures_total",
			Help: "Off-chain recording attempts that failed after an on-chain commit.",
		}, []string{"record"}),
	}
}

func (m *FlowMetrics) ObserveStep(kind, step string) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(kind, step).Inc()
}

func (m *FlowMetrics) ObserveOutcome(kind, outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.flows.WithLabelValues(kind, outcome).Inc()
}

func (m *FlowMetrics) ObserveRecordFailure(record string) {
	if m == nil {
		return
	}
	m.recordFailures.WithLabelValues(record).Inc()
}
