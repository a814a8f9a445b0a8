// Package metrics holds the prometheus collectors for marketplace flows.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "courseledger"

const (
	LabelOutcome = "outcome"
	LabelResult  = "result"
	LabelAction  = "action"
)

const (
	OutcomeSubmitted = "submitted"
	OutcomeRejected  = "rejected"
	OutcomeInvalid   = "invalid"

	ResultMatch    = "match"
	ResultMismatch = "mismatch"
)

// Market records purchase, verification and admin state-change outcomes.
type Market interface {
	Purchase(outcome string)
	Verification(matched bool)
	StateChange(action, outcome string)
}

type MarketCollector struct {
	purchases     *prometheus.CounterVec
	verifications *prometheus.CounterVec
	stateChanges  *prometheus.CounterVec
}

var _ Market = (*MarketCollector)(nil)

// NewMarketCollector registers the marketplace counters on reg.
func NewMarketCollector(reg prometheus.Registerer) *MarketCollector {
	factory := promauto.With(reg)
	return &MarketCollector{
		purchases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_total",
			Help:      "purchase attempts by outcome",
		}, []string{LabelOutcome}),
		verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "email verifications by result",
		}, []string{LabelResult}),
		stateChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_changes_total",
			Help:      "admin activate/deactivate requests by outcome",
		}, []string{LabelAction, LabelOutcome}),
	}
}

func (c *MarketCollector) Purchase(outcome string) {
	c.purchases.With(prometheus.Labels{LabelOutcome: outcome}).Inc()
}

func (c *MarketCollector) Verification(matched bool) {
	result := ResultMismatch
	if matched {
		result = ResultMatch
	}
	c.verifications.With(prometheus.Labels{LabelResult: result}).Inc()
}

func (c *MarketCollector) StateChange(action, outcome string) {
	c.stateChanges.With(prometheus.Labels{LabelAction: action, LabelOutcome: outcome}).Inc()
}

type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (nc *NoopCollector) Purchase(outcome string)            {}
func (nc *NoopCollector) Verification(matched bool)          {}
func (nc *NoopCollector) StateChange(action, outcome string) {}
