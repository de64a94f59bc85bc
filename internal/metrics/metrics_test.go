package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveMutation("deposit", OutcomeApplied, 5*time.Millisecond)
	r.ObserveMutation("deposit", OutcomeApplied, 7*time.Millisecond)
	r.ObserveMutation("withdrawal", OutcomeRejected, time.Millisecond)
	r.IncRetry("ledger")
	r.ObserveCommission("operator")
	r.ObserveWithdrawal(OutcomeInsufficient)
	r.ObserveDelivery(OutcomeDeadLetter)
	r.SetOutboxPending(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.mutations.WithLabelValues("deposit", OutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.mutations.WithLabelValues("withdrawal", OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.retries.WithLabelValues("ledger")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.commissionResolves.WithLabelValues("operator")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rewardsWithdrawals.WithLabelValues(OutcomeInsufficient)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.auditDeliveries.WithLabelValues(OutcomeDeadLetter)))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.outboxPending))
	assert.Equal(t, 1, testutil.CollectAndCount(r.mutationDuration))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveMutation("deposit", OutcomeApplied, time.Millisecond)
		r.IncRetry("ledger")
		r.ObserveCommission("none")
		r.IncCommissionCacheHit()
		r.ObserveWithdrawal(OutcomeApplied)
		r.IncActivity()
		r.ObserveDelivery(OutcomeDelivered)
		r.SetOutboxPending(1)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)
	r.IncActivity()

	server := httptest.NewServer(Handler(reg))
	defer server.Close()

	resp, err := server.Client().Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "wallet_ledger_rewards_activities_total 1"))
}
