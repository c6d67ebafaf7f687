package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/ports"
)

// stuckPublisher blocks every call until release is closed, ignoring ctx.
type stuckPublisher struct {
	release chan struct{}
	calls   atomic.Int32
}

func newStuckPublisher(t *testing.T) *stuckPublisher {
	p := &stuckPublisher{release: make(chan struct{})}
	t.Cleanup(func() { close(p.release) })
	return p
}

func (p *stuckPublisher) PublishTransactionEvent(context.Context, ports.TransactionEvent) error {
	p.calls.Add(1)
	<-p.release
	return nil
}

// ctxPublisher waits for its context and reports what it saw.
type ctxPublisher struct {
	errs chan error
}

func (p *ctxPublisher) PublishTransactionEvent(ctx context.Context, _ ports.TransactionEvent) error {
	<-ctx.Done()
	p.errs <- ctx.Err()
	return ctx.Err()
}

func TestMaterializeReturnsWhilePublisherIsStuck(t *testing.T) {
	f := newEngineFixture(t)
	f.addRule(t, "a", core.Expense, 1, "2025-01", "")
	f.addRule(t, "b", core.Expense, 5, "2025-01", "")
	pub := newStuckPublisher(t)
	e := f.engine(WithEvents(pub), WithPublishTimeout(50*time.Millisecond))

	start := time.Now()
	res, err := e.Materialize(context.Background(), f.user, "2025-06")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Len(t, res.Created, 2)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, int32(1), pub.calls.Load(), "later events wait behind the stuck one")

	list, err := f.store.ListTransactions(context.Background(), f.user, core.MustParseMonth("2025-06"))
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestTransactionCreateReturnsWhilePublisherIsStuck(t *testing.T) {
	f := newEngineFixture(t)
	s := newTransactionService(f, newStuckPublisher(t))
	s.publishTimeout = 50 * time.Millisecond

	start := time.Now()
	_, err := s.Create(context.Background(), f.user, f.expense(1250))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPublishEventsOutlivesCallerCancellation(t *testing.T) {
	pub := &ctxPublisher{errs: make(chan error, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	publishEvents(ctx, pub, 30*time.Millisecond, log.Discard(), []ports.TransactionEvent{{TransactionID: "t1"}})

	select {
	case err := <-pub.errs:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("publisher never finished")
	}
}

func TestPublishEventsSendsInOrder(t *testing.T) {
	pub := &recordingPublisher{}
	evs := []ports.TransactionEvent{{TransactionID: "t1"}, {TransactionID: "t2"}, {TransactionID: "t3"}}

	publishEvents(context.Background(), pub, time.Second, log.Discard(), evs)

	require.Len(t, pub.events, 3)
	for i, ev := range pub.events {
		assert.Equal(t, evs[i].TransactionID, ev.TransactionID)
	}
}
