package commission

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wallet-ledger-go/internal/database/dbtest"
	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts rule loads and can fail them
type countingStore struct {
	store.CommissionStore
	loads atomic.Int32
	err   error
}

func (c *countingStore) FindActiveRules(ctx context.Context, serviceType string) ([]models.CommissionRule, error) {
	c.loads.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.CommissionStore.FindActiveRules(ctx, serviceType)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(s string) *string {
	return &s
}

func newAirtimeResolver(t *testing.T) *Resolver {
	t.Helper()
	r := NewResolver(dbtest.NewService(t), models.CommissionConfig{CacheTTL: time.Minute})
	ctx := context.Background()

	_, err := r.SetRule(ctx, models.CommissionRule{
		ServiceType:     "airtime",
		CommissionType:  models.CommissionPercentage,
		CommissionValue: dec("2"),
		CurrencyCode:    "USD",
	})
	require.NoError(t, err)
	_, err = r.SetRule(ctx, models.CommissionRule{
		ServiceType:     "airtime",
		OperatorId:      ptr("7"),
		CommissionType:  models.CommissionFixedAmount,
		CommissionValue: dec("50"),
		CurrencyCode:    "USD",
	})
	require.NoError(t, err)
	return r
}

func TestResolveOperatorRuleTakesPrecedence(t *testing.T) {
	r := newAirtimeResolver(t)

	calc, err := r.Resolve(context.Background(), "airtime", dec("1000"), ptr("7"))
	require.NoError(t, err)
	assert.Equal(t, models.CommissionFixedAmount, calc.CommissionType)
	assert.Equal(t, models.RuleSourceOperator, calc.Source)
	assert.True(t, calc.CommissionValue.Equal(dec("50")), "commission %s", calc.CommissionValue)
	assert.True(t, calc.FinalAmount.Equal(dec("1050")), "final %s", calc.FinalAmount)
}

func TestResolveFallsBackToGlobalRule(t *testing.T) {
	r := newAirtimeResolver(t)

	calc, err := r.Resolve(context.Background(), "airtime", dec("1000"), ptr("9"))
	require.NoError(t, err)
	assert.Equal(t, models.CommissionPercentage, calc.CommissionType)
	assert.Equal(t, models.RuleSourceService, calc.Source)
	assert.True(t, calc.RuleValue.Equal(dec("2")))
	assert.True(t, calc.CommissionValue.Equal(dec("20")))
	assert.True(t, calc.FinalAmount.Equal(dec("1020")))

	noOperator, err := r.Resolve(context.Background(), "airtime", dec("1000"), nil)
	require.NoError(t, err)
	assert.True(t, noOperator.CommissionValue.Equal(dec("20")))
}

func TestResolveCatchAllAndNoRule(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(dbtest.NewService(t), models.CommissionConfig{})

	none, err := r.Resolve(ctx, "data", dec("12.345"), nil)
	require.NoError(t, err)
	assert.Equal(t, models.RuleSourceNone, none.Source)
	assert.Equal(t, models.CommissionNone, none.CommissionType)
	assert.True(t, none.CommissionValue.IsZero())
	assert.True(t, none.FinalAmount.Equal(dec("12.345")))

	_, err = r.SetRule(ctx, models.CommissionRule{
		ServiceType:     models.ServiceTypeAll,
		CommissionType:  models.CommissionFixedAmount,
		CommissionValue: dec("1.5"),
	})
	require.NoError(t, err)

	calc, err := r.Resolve(ctx, "data", dec("10"), nil)
	require.NoError(t, err)
	assert.Equal(t, models.RuleSourceCatchAll, calc.Source)
	assert.True(t, calc.FinalAmount.Equal(dec("11.5")))
}

func TestResolveRounding(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(dbtest.NewService(t), models.CommissionConfig{})

	_, err := r.SetRule(ctx, models.CommissionRule{
		ServiceType:     "transfer",
		CommissionType:  models.CommissionPercentage,
		CommissionValue: dec("1.5"),
		CurrencyCode:    "USD",
	})
	require.NoError(t, err)

	// 33.3333 * 1.5% = 0.4999995 -> 0.5000, final 33.8333 -> 33.83
	calc, err := r.Resolve(ctx, "transfer", dec("33.3333"), nil)
	require.NoError(t, err)
	assert.Equal(t, "0.5", calc.CommissionValue.String())
	assert.Equal(t, "33.83", calc.FinalAmount.String())

	// 0.0333 * 1.5% = 0.0004995 -> 0.0005 (half away from zero)
	calc, err = r.Resolve(ctx, "transfer", dec("0.0333"), nil)
	require.NoError(t, err)
	assert.Equal(t, "0.0005", calc.CommissionValue.String())
	assert.Equal(t, "0.03", calc.FinalAmount.String())
}

func TestResolveAmountBounds(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(dbtest.NewService(t), models.CommissionConfig{})

	_, err := r.SetRule(ctx, models.CommissionRule{
		ServiceType:     "bills",
		CommissionType:  models.CommissionFixedAmount,
		CommissionValue: dec("5"),
		MinAmount:       decimal.NewNullDecimal(dec("10")),
		MaxAmount:       decimal.NewNullDecimal(dec("500")),
	})
	require.NoError(t, err)

	_, err = r.Resolve(ctx, "bills", dec("9.99"), nil)
	assert.ErrorIs(t, err, store.ErrAmountOutOfRange)
	_, err = r.Resolve(ctx, "bills", dec("500.01"), nil)
	assert.ErrorIs(t, err, store.ErrAmountOutOfRange)

	calc, err := r.Resolve(ctx, "bills", dec("500"), nil)
	require.NoError(t, err)
	assert.True(t, calc.FinalAmount.Equal(dec("505")))
}

func TestResolveValidation(t *testing.T) {
	r := NewResolver(dbtest.NewService(t), models.CommissionConfig{})

	_, err := r.Resolve(context.Background(), "  ", dec("1"), nil)
	assert.ErrorIs(t, err, store.ErrValidation)
	_, err = r.Resolve(context.Background(), "airtime", dec("-1"), nil)
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestResolveLookupFailureIsNotZeroCommission(t *testing.T) {
	failing := &countingStore{CommissionStore: dbtest.NewService(t), err: store.ErrStorageFailure}
	r := NewResolver(failing, models.CommissionConfig{CacheTTL: time.Minute})

	calc, err := r.Resolve(context.Background(), "airtime", dec("1000"), nil)
	assert.Nil(t, calc)
	assert.ErrorIs(t, err, store.ErrStorageFailure)
}

func TestResolveCachesAndInvalidatesOnEdit(t *testing.T) {
	ctx := context.Background()
	counting := &countingStore{CommissionStore: dbtest.NewService(t)}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewResolver(counting, models.CommissionConfig{CacheTTL: 30 * time.Second}, withClock(func() time.Time { return now }))

	_, err := r.SetRule(ctx, models.CommissionRule{ServiceType: "airtime", CommissionType: models.CommissionPercentage, CommissionValue: dec("2")})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(ctx, "airtime", dec("100"), nil)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), counting.loads.Load())

	_, err = r.SetRule(ctx, models.CommissionRule{ServiceType: "airtime", CommissionType: models.CommissionPercentage, CommissionValue: dec("3")})
	require.NoError(t, err)

	calc, err := r.Resolve(ctx, "airtime", dec("100"), nil)
	require.NoError(t, err)
	assert.True(t, calc.CommissionValue.Equal(dec("3")))
	assert.Equal(t, int32(2), counting.loads.Load())

	now = now.Add(time.Minute)
	_, err = r.Resolve(ctx, "airtime", dec("100"), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), counting.loads.Load())
}

func TestResolveConcurrentReads(t *testing.T) {
	r := newAirtimeResolver(t)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			calc, err := r.Resolve(context.Background(), "airtime", dec("1000"), ptr("7"))
			if err != nil {
				errs <- err
				return
			}
			if !calc.FinalAmount.Equal(dec("1050")) {
				errs <- errors.New("unexpected final amount " + calc.FinalAmount.String())
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestDisableRuleFallsBack(t *testing.T) {
	ctx := context.Background()
	r := newAirtimeResolver(t)

	require.NoError(t, r.DisableRule(ctx, "airtime", ptr("7")))

	calc, err := r.Resolve(ctx, "airtime", dec("1000"), ptr("7"))
	require.NoError(t, err)
	assert.True(t, calc.FinalAmount.Equal(dec("1020")))

	err = r.DisableRule(ctx, "airtime", ptr("404"))
	assert.ErrorIs(t, err, store.ErrRuleNotFound)

	active, err := r.ListRules(ctx, false)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	all, err := r.ListRules(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// blockingStore holds rule loads until released and records the load context
type blockingStore struct {
	store.CommissionStore
	loads   atomic.Int32
	entered chan struct{}
	release chan struct{}
	loadErr chan error
}

func (b *blockingStore) FindActiveRules(ctx context.Context, serviceType string) ([]models.CommissionRule, error) {
	if b.loads.Add(1) == 1 {
		close(b.entered)
	}
	<-b.release
	b.loadErr <- ctx.Err()
	return b.CommissionStore.FindActiveRules(ctx, serviceType)
}

func TestResolveCancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	blocking := &blockingStore{
		CommissionStore: dbtest.NewService(t),
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
		loadErr:         make(chan error, 1),
	}
	r := NewResolver(blocking, models.CommissionConfig{CacheTTL: time.Minute})
	_, err := r.SetRule(context.Background(), models.CommissionRule{
		ServiceType: "airtime", CommissionType: models.CommissionPercentage, CommissionValue: dec("2"), CurrencyCode: "USD",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, "airtime", dec("100"), nil)
		first <- err
	}()

	<-blocking.entered
	cancel()
	select {
	case err := <-first:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller did not return while the load was in flight")
	}

	close(blocking.release)
	assert.NoError(t, <-blocking.loadErr)

	// The detached load completes and fills the cache for everyone else
	require.Eventually(t, func() bool {
		calc, err := r.Resolve(context.Background(), "airtime", dec("100"), nil)
		return err == nil && calc.CommissionValue.Equal(dec("2"))
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), blocking.loads.Load())
}
