package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type NodeMetrics struct {
	transitions      *prometheus.CounterVec
	proposalOutcomes *prometheus.CounterVec
	roundKind        prometheus.Gauge
	salePrice        prometheus.Gauge
	committedEvents  prometheus.Counter
}

var (
	nodeOnce     sync.Once
	nodeRegistry *NodeMetrics
)

func Node() *NodeMetrics {
	nodeOnce.Do(func() {
		nodeRegistry = &NodeMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "acdm",
				Name:      "transitions_total",
				Help:      "State transitions by module, operation and outcome.",
			}, []string{"module", "operation", "outcome"}),
			proposalOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "acdm",
				Name:      "proposal_outcomes_total",
				Help:      "Finished proposals by outcome.",
			}, []string{"outcome"}),
			roundKind: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "acdm",
				Name:      "platform_round_kind",
				Help:      "Active platform round: 0 uninitialized, 1 sale, 2 trade.",
			}),
			salePrice: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "acdm",
				Name:      "platform_price_wei",
				Help:      "Current sale price per whole token in wei.",
			}),
			committedEvents: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "acdm",
				Name:      "events_committed_total",
				Help:      "Events emitted by committed transitions.",
			}),
		}
		prometheus.MustRegister(
			nodeRegistry.transitions,
			nodeRegistry.proposalOutcomes,
			nodeRegistry.roundKind,
			nodeRegistry.salePrice,
			nodeRegistry.committedEvents,
		)
	})
	return nodeRegistry
}

func (m *NodeMetrics) ObserveTransition(module, operation, outcome string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	m.transitions.WithLabelValues(module, operation, outcome).Inc()
}

func (m *NodeMetrics) ObserveProposalOutcome(outcome string) {
	if m == nil {
		return
	}
	m.proposalOutcomes.WithLabelValues(outcome).Inc()
}

// SetRound publishes the platform phase. Price is truncated to float64.
func (m *NodeMetrics) SetRound(kind uint8, price float64) {
	if m == nil {
		return
	}
	m.roundKind.Set(float64(kind))
	m.salePrice.Set(price)
}

func (m *NodeMetrics) AddEvents(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.committedEvents.Add(float64(n))
}
