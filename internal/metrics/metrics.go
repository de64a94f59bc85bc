// Package metrics holds the Prometheus collectors for the ledger core.
// A nil *Recorder is valid and records nothing, so callers and tests can
// skip metrics entirely.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wallet_ledger"

// Outcome labels
const (
	OutcomeApplied      = "applied"
	OutcomeReplayed     = "replayed"
	OutcomeRejected     = "rejected"
	OutcomeFailed       = "failed"
	OutcomeDelivered    = "delivered"
	OutcomeRetry        = "retry"
	OutcomeDeadLetter   = "dead_letter"
	OutcomeCompensated  = "compensated"
	OutcomeInsufficient = "insufficient"
)

type Recorder struct {
	mutations           *prometheus.CounterVec
	mutationDuration    prometheus.Histogram
	retries             *prometheus.CounterVec
	commissionResolves  *prometheus.CounterVec
	commissionCacheHits prometheus.Counter
	rewardsWithdrawals  *prometheus.CounterVec
	rewardsActivities   prometheus.Counter
	auditDeliveries     *prometheus.CounterVec
	outboxPending       prometheus.Gauge
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "mutations_total",
			Help:      "Balance mutations by entry type and outcome",
		}, []string{"entry_type", "outcome"}),
		mutationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "mutation_duration_seconds",
			Help:      "Time spent applying a balance mutation, retries included",
			Buckets:   prometheus.DefBuckets,
		}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retried storage attempts by component",
		}, []string{"component"}),
		commissionResolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commission",
			Name:      "resolutions_total",
			Help:      "Commission resolutions by rule source",
		}, []string{"source"}),
		commissionCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commission",
			Name:      "cache_hits_total",
			Help:      "Rule lookups served from cache",
		}),
		rewardsWithdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewards",
			Name:      "withdrawals_total",
			Help:      "Rewards withdrawals by outcome",
		}, []string{"outcome"}),
		rewardsActivities: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewards",
			Name:      "activities_total",
			Help:      "Activities recorded",
		}),
		auditDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "deliveries_total",
			Help:      "Outbox delivery attempts by outcome",
		}, []string{"outcome"}),
		outboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "outbox_pending",
			Help:      "Audit events waiting for delivery",
		}),
	}

	reg.MustRegister(
		r.mutations,
		r.mutationDuration,
		r.retries,
		r.commissionResolves,
		r.commissionCacheHits,
		r.rewardsWithdrawals,
		r.rewardsActivities,
		r.auditDeliveries,
		r.outboxPending,
	)
	return r
}

// Handler exposes gatherer in the Prometheus text format
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveMutation(entryType, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.mutations.WithLabelValues(entryType, outcome).Inc()
	r.mutationDuration.Observe(elapsed.Seconds())
}

func (r *Recorder) IncRetry(component string) {
	if r == nil {
		return
	}
	r.retries.WithLabelValues(component).Inc()
}

func (r *Recorder) ObserveCommission(source string) {
	if r == nil {
		return
	}
	r.commissionResolves.WithLabelValues(source).Inc()
}

func (r *Recorder) IncCommissionCacheHit() {
	if r == nil {
		return
	}
	r.commissionCacheHits.Inc()
}

func (r *Recorder) ObserveWithdrawal(outcome string) {
	if r == nil {
		return
	}
	r.rewardsWithdrawals.WithLabelValues(outcome).Inc()
}

func (r *Recorder) IncActivity() {
	if r == nil {
		return
	}
	r.rewardsActivities.Inc()
}

func (r *Recorder) ObserveDelivery(outcome string) {
	if r == nil {
		return
	}
	r.auditDeliveries.WithLabelValues(outcome).Inc()
}

func (r *Recorder) SetOutboxPending(n int) {
	if r == nil {
		return
	}
	r.outboxPending.Set(float64(n))
}
