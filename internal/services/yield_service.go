package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/ports"
)

// ErrYieldsUnavailable is returned when a month has no stored yields and no
// provider is configured to fetch them.
var ErrYieldsUnavailable = errors.New("market yields unavailable")

const (
	DefaultYieldCacheSize = 24
	DefaultYieldCacheTTL  = 6 * time.Hour

	// DefaultYieldLoadTimeout bounds one shared store and provider lookup.
	DefaultYieldLoadTimeout = 10 * time.Second
)

// YieldService serves market yields per month, syncing lazily on a miss:
// cache, then store, then provider.
type YieldService struct {
	store    ports.YieldStore
	provider ports.YieldProvider
	cache    *cache.LRUCache[[]core.MarketYield]
	group    singleflight.Group
	timeout  time.Duration
	now      func() time.Time
	logger   *log.Logger
}

// NewYieldService wires the yield lookup. provider may be nil.
func NewYieldService(store ports.YieldStore, provider ports.YieldProvider, c *cache.LRUCache[[]core.MarketYield], logger *log.Logger) *YieldService {
	if c == nil {
		c = cache.NewLRUCache[[]core.MarketYield](DefaultYieldCacheSize, DefaultYieldCacheTTL)
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &YieldService{
		store:    store,
		provider: provider,
		cache:    c,
		timeout:  DefaultYieldLoadTimeout,
		now:      time.Now,
		logger:   logger.WithComponent(log.ComponentYields),
	}
}

// Yields returns the yields of month. The returned slice is the caller's own.
// A lookup shared by concurrent callers runs detached from any single
// caller's cancellation; each caller still stops waiting when its ctx ends.
func (s *YieldService) Yields(ctx context.Context, month core.Month) ([]core.MarketYield, error) {
	key := month.String()
	if ys, ok := s.cache.Get(key); ok {
		return slices.Clone(ys), nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.load(lctx, month)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.DebugContext(ctx, "Yield lookup shared", log.FieldMonth, key)
		}
		return slices.Clone(res.Val.([]core.MarketYield)), nil
	}
}

func (s *YieldService) load(ctx context.Context, month core.Month) ([]core.MarketYield, error) {
	key := month.String()
	stored, err := s.store.GetYields(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("get stored yields: %w", err)
	}
	if len(stored) > 0 {
		s.cache.Set(key, stored)
		return stored, nil
	}

	if s.provider == nil {
		return nil, fmt.Errorf("%s: %w", key, ErrYieldsUnavailable)
	}

	fetched, err := s.provider.FetchYields(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("fetch yields for %s: %w", key, err)
	}
	now := s.now().UTC()
	for i := range fetched {
		fetched[i].Month = month
		if fetched[i].FetchedAt.IsZero() {
			fetched[i].FetchedAt = now
		}
	}
	if err := s.store.SaveYields(ctx, month, fetched); err != nil {
		return nil, fmt.Errorf("save yields: %w", err)
	}
	s.cache.Set(key, fetched)

	s.logger.InfoContext(ctx, "Market yields synced",
		log.FieldMonth, key,
		"instruments", len(fetched))
	return fetched, nil
}
