package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
	"bilancio/internal/storage/memory"
)

type countingProvider struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (p *countingProvider) FetchYields(_ context.Context, month core.Month) ([]core.MarketYield, error) {
	p.calls.Add(1)
	if p.release != nil {
		<-p.release
	}
	if p.err != nil {
		return nil, p.err
	}
	return []core.MarketYield{
		{Instrument: "BTP10Y", Rate: decimal.RequireFromString("3.85")},
		{Instrument: "BOT12M", Rate: decimal.RequireFromString("2.41")},
	}, nil
}

func TestYieldsLazySync(t *testing.T) {
	store := memory.New()
	provider := &countingProvider{}
	s := NewYieldService(store, provider, nil, nil)
	s.now = fixedClock
	ctx := context.Background()
	june := core.MustParseMonth("2025-06")

	ys, err := s.Yields(ctx, june)
	require.NoError(t, err)
	require.Len(t, ys, 2)
	assert.Equal(t, june, ys[0].Month)
	assert.Equal(t, fixedNow, ys[0].FetchedAt)

	stored, err := store.GetYields(ctx, june)
	require.NoError(t, err)
	assert.Len(t, stored, 2, "fetched yields are saved")

	_, err = s.Yields(ctx, june)
	require.NoError(t, err)
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestYieldsServedFromStoreWithoutProvider(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	june := core.MustParseMonth("2025-06")
	require.NoError(t, store.SaveYields(ctx, june, []core.MarketYield{
		{Month: june, Instrument: "BTP10Y", Rate: decimal.RequireFromString("3.9"), FetchedAt: fixedNow},
	}))

	s := NewYieldService(store, nil, nil, nil)
	ys, err := s.Yields(ctx, june)
	require.NoError(t, err)
	assert.Len(t, ys, 1)

	_, err = s.Yields(ctx, core.MustParseMonth("2025-07"))
	assert.ErrorIs(t, err, ErrYieldsUnavailable)
}

func TestYieldsConcurrentMissesFetchOnce(t *testing.T) {
	provider := &countingProvider{release: make(chan struct{})}
	s := NewYieldService(memory.New(), provider, nil, nil)
	june := core.MustParseMonth("2025-06")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ys, err := s.Yields(context.Background(), june)
			assert.NoError(t, err)
			assert.Len(t, ys, 2)
		}()
	}
	require.Eventually(t, func() bool { return provider.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(provider.release)
	wg.Wait()

	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestYieldsProviderErrorIsNotCached(t *testing.T) {
	provider := &countingProvider{err: errors.New("upstream 502")}
	s := NewYieldService(memory.New(), provider, nil, nil)
	june := core.MustParseMonth("2025-06")

	_, err := s.Yields(context.Background(), june)
	require.Error(t, err)
	provider.err = nil

	ys, err := s.Yields(context.Background(), june)
	require.NoError(t, err)
	assert.Len(t, ys, 2)
	assert.Equal(t, int32(2), provider.calls.Load())
}

// ctxCheckingProvider blocks until release and reports whether its ctx was
// still live at that point.
type ctxCheckingProvider struct {
	countingProvider
	ctxErr chan error
}

func (p *ctxCheckingProvider) FetchYields(ctx context.Context, month core.Month) ([]core.MarketYield, error) {
	ys, err := p.countingProvider.FetchYields(ctx, month)
	p.ctxErr <- ctx.Err()
	return ys, err
}

func TestYieldsCancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	provider := &ctxCheckingProvider{
		countingProvider: countingProvider{release: make(chan struct{})},
		ctxErr:           make(chan error, 1),
	}
	s := NewYieldService(memory.New(), provider, nil, nil)
	june := core.MustParseMonth("2025-06")

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Yields(firstCtx, june)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return provider.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		ys  []core.MarketYield
		err error
	}
	second := make(chan result, 1)
	go func() {
		ys, err := s.Yields(context.Background(), june)
		second <- result{ys, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(provider.release)
	assert.NoError(t, <-provider.ctxErr, "lookup context must survive the first caller")
	res := <-second
	require.NoError(t, res.err)
	assert.Len(t, res.ys, 2)
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestYieldsReturnsCallerOwnedSlice(t *testing.T) {
	s := NewYieldService(memory.New(), &countingProvider{}, nil, nil)
	ctx := context.Background()
	june := core.MustParseMonth("2025-06")

	first, err := s.Yields(ctx, june)
	require.NoError(t, err)
	first[0].Instrument = "MUTATED"
	first[1].Rate = decimal.Zero

	again, err := s.Yields(ctx, june)
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, "BTP10Y", again[0].Instrument)
	assert.True(t, again[1].Rate.Equal(decimal.RequireFromString("2.41")))

	again[0].Instrument = "MUTATED AGAIN"
	third, err := s.Yields(ctx, june)
	require.NoError(t, err)
	assert.Equal(t, "BTP10Y", third[0].Instrument)
}
