package pushtask

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/security"
	"github.com/0xPolygonHermez/zkevm-swap-service/swapctrl"
	"github.com/0xPolygonHermez/zkevm-swap-service/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChain struct {
	block uint64
	err   error
}

func (c *fakeChain) BlockNumber(context.Context) (uint64, error) {
	return c.block, c.err
}

type fakeSweeper struct {
	mu        sync.Mutex
	orders    []*swapctrl.Order
	refunded  []string
	refundErr map[string]error
}

func (s *fakeSweeper) ListOrders(_ context.Context, status swapctrl.Status, limit, offset uint) ([]*swapctrl.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*swapctrl.Order
	for _, o := range s.orders {
		if o.Status == status {
			matched = append(matched, o.Copy())
		}
	}
	if offset >= uint(len(matched)) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit < uint(len(matched)) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *fakeSweeper) Refund(_ context.Context, id string) (*swapctrl.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refundErr[id]; err != nil {
		return nil, err
	}
	for _, o := range s.orders {
		if o.ID == id {
			o.Status = swapctrl.StatusExpired
			o.Outcome = swapctrl.OutcomeRefunded
			s.refunded = append(s.refunded, id)
			return o.Copy(), nil
		}
	}
	return nil, gerror.ErrStorageNotFound
}

func newOrder(id string, status swapctrl.Status, outcome swapctrl.Outcome, expiration time.Time) *swapctrl.Order {
	return &swapctrl.Order{ID: id, Status: status, Outcome: outcome, Expiration: expiration, SourceAmount: big.NewInt(1), DestinationAmount: big.NewInt(2)}
}

func TestBlockNumTask(t *testing.T) {
	ctx := context.Background()
	chain := &fakeChain{block: 10}
	task := NewBlockNumTask(map[uint64]ChainReader{1: chain}, security.NewMemoryStore(nil), 0)

	task.doTask(ctx, 1)
	assert.Equal(t, uint64(10), task.Latest(1))

	chain.block = 7
	task.doTask(ctx, 1)
	assert.Equal(t, uint64(10), task.Latest(1), "never goes backwards")

	chain.err = errors.New("node down")
	chain.block = 12
	task.doTask(ctx, 1)
	assert.Equal(t, uint64(10), task.Latest(1))

	chain.err = nil
	task.doTask(ctx, 1)
	assert.Equal(t, uint64(12), task.Latest(1))
}

func TestBlockNumTaskSkipsWhenLocked(t *testing.T) {
	ctx := context.Background()
	store := security.NewMemoryStore(nil)
	ok, err := store.MarkInFlight(ctx, fmt.Sprintf(blockNumTaskLockKey, 1), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	task := NewBlockNumTask(map[uint64]ChainReader{1: &fakeChain{block: 10}}, store, 0)
	task.doTask(ctx, 1)
	assert.Equal(t, uint64(0), task.Latest(1))
}

func TestBlockNumTaskStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := NewBlockNumTask(map[uint64]ChainReader{1: &fakeChain{block: 3}}, security.NewMemoryStore(nil), time.Millisecond)
	done := make(chan struct{})
	go func() {
		task.Start(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return task.Latest(1) == 3 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestRefundTask(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Minute), now.Add(time.Hour)
	sweeper := &fakeSweeper{
		orders: []*swapctrl.Order{
			newOrder("filled-expired", swapctrl.StatusFilled, swapctrl.OutcomeNone, past),
			newOrder("filled-live", swapctrl.StatusFilled, swapctrl.OutcomeNone, future),
			newOrder("unfilled-expired", swapctrl.StatusExpired, swapctrl.OutcomeNone, past),
			newOrder("cancelled", swapctrl.StatusExpired, swapctrl.OutcomeCancelled, past),
			newOrder("completed", swapctrl.StatusExpired, swapctrl.OutcomeCompleted, past),
			newOrder("broken", swapctrl.StatusFilled, swapctrl.OutcomeNone, past),
			newOrder("pending", swapctrl.StatusPending, swapctrl.OutcomeNone, past),
		},
		refundErr: map[string]error{"broken": gerror.ErrVaultSettled},
	}
	finished := newOrder("finished", swapctrl.StatusFilled, swapctrl.OutcomeNone, past)
	finished.FinishedAt = &past
	sweeper.orders = append(sweeper.orders, finished)
	task := NewRefundTask(sweeper, security.NewMemoryStore(nil), utils.NewTimeProviderFixedTime(now), 0)

	assert.Equal(t, 3, task.doTask(context.Background()))
	assert.ElementsMatch(t, []string{"filled-expired", "unfilled-expired", "cancelled"}, sweeper.refunded)

	assert.Equal(t, 0, task.doTask(context.Background()), "refunded orders are not swept again")
}

func TestRefundTaskStopsWhenPaused(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sweeper := &fakeSweeper{
		orders: []*swapctrl.Order{
			newOrder("a", swapctrl.StatusFilled, swapctrl.OutcomeNone, now.Add(-time.Minute)),
			newOrder("b", swapctrl.StatusFilled, swapctrl.OutcomeNone, now.Add(-time.Minute)),
		},
		refundErr: map[string]error{"a": gerror.ErrSystemPaused, "b": gerror.ErrSystemPaused},
	}
	task := NewRefundTask(sweeper, security.NewMemoryStore(nil), utils.NewTimeProviderFixedTime(now), 0)
	assert.Equal(t, 0, task.doTask(context.Background()))
	assert.Empty(t, sweeper.refunded)
}

func TestRefundTaskPaging(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sweeper := &fakeSweeper{}
	for i := 0; i < refundTaskPageSize+5; i++ {
		sweeper.orders = append(sweeper.orders, newOrder(fmt.Sprintf("o-%d", i), swapctrl.StatusFilled, swapctrl.OutcomeNone, now.Add(-time.Second)))
	}
	task := NewRefundTask(sweeper, security.NewMemoryStore(nil), utils.NewTimeProviderFixedTime(now), 0)
	assert.Equal(t, refundTaskPageSize+5, task.doTask(context.Background()))
}
