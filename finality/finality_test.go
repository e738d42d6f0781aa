package finality

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/0xPolygonHermez/zkevm-swap-service/config/types"
	"github.com/0xPolygonHermez/zkevm-swap-service/gerror"
	"github.com/0xPolygonHermez/zkevm-swap-service/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type steppingReader struct {
	height uint64
	step   uint64
}

func (r *steppingReader) BlockNumber(context.Context) (uint64, error) {
	return atomic.AddUint64(&r.height, r.step) - r.step, nil
}

type staticWhitelist map[common.Address]bool

func (w staticWhitelist) IsWhitelisted(_ context.Context, a common.Address) (bool, error) {
	if len(w) == 0 {
		return true, nil
	}
	return w[a], nil
}

var (
	resolverA = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	resolverB = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
)

func newTestManager(t *testing.T, readers map[uint64]ChainReader, wl resolverWhitelist, delay time.Duration) *Manager {
	m, err := NewManager(Config{
		Chains: []ChainConfirmations{
			{ChainID: 1, Confirmations: 12, BlockTime: types.NewDuration(12 * time.Second)},
			{ChainID: 2, Confirmations: 3, BlockTime: types.NewDuration(2 * time.Second)},
		},
		PollInterval:       types.NewDuration(time.Millisecond),
		SecretSharingDelay: types.NewDuration(delay),
	}, readers, wl, nil)
	require.NoError(t, err)
	return m
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewManagerNeedsReaders(t *testing.T) {
	_, err := NewManager(Config{Chains: []ChainConfirmations{{ChainID: 7, Confirmations: 1}}}, nil, nil, nil)
	assert.ErrorIs(t, err, gerror.ErrInvalidConfig)
}

func TestWaitForFinality(t *testing.T) {
	readers := map[uint64]ChainReader{
		1: &steppingReader{height: 100, step: 1},
		2: &steppingReader{height: 50, step: 1},
	}
	m := newTestManager(t, readers, nil, 0)

	var last Progress
	calls := 0
	err := m.WaitForFinality(context.Background(), 1, 100, func(p Progress) {
		calls++
		last = p
	})
	require.NoError(t, err)
	assert.Equal(t, 13, calls)
	assert.Equal(t, uint64(112), last.CurrentBlock)
	assert.Equal(t, uint64(0), last.Remaining)

	assert.Equal(t, 144*time.Second, m.EstimatedWait(1))
	assert.Equal(t, 144*time.Second, m.LongestWait())
	c, err := m.Confirmations(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), c)
}

func TestWaitForFinalityUnknownChain(t *testing.T) {
	m := newTestManager(t, map[uint64]ChainReader{1: &steppingReader{}, 2: &steppingReader{}}, nil, 0)
	assert.ErrorIs(t, m.WaitForFinality(context.Background(), 99, 1, nil), gerror.ErrUnknownChain)
	_, err := m.Confirmations(99)
	assert.ErrorIs(t, err, gerror.ErrUnknownChain)
}

func TestWaitForFinalityCancelled(t *testing.T) {
	m := newTestManager(t, map[uint64]ChainReader{1: &steppingReader{height: 10}, 2: &steppingReader{}}, nil, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := m.WaitForFinality(ctx, 1, 10, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForAll(t *testing.T) {
	readers := map[uint64]ChainReader{
		1: &steppingReader{height: 0, step: 2},
		2: &steppingReader{height: 0, step: 1},
	}
	m := newTestManager(t, readers, nil, 0)
	var mu sync.Mutex
	seen := map[uint64]bool{}
	err := m.WaitForAll(context.Background(), []Target{{ChainID: 1, BlockNumber: 4}, {ChainID: 2, BlockNumber: 4}}, func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		if p.Remaining == 0 {
			seen[p.ChainID] = true
		}
	})
	require.NoError(t, err)
	assert.True(t, seen[1])
	assert.True(t, seen[2])

	err = m.WaitForAll(context.Background(), []Target{{ChainID: 1, BlockNumber: 4}, {ChainID: 5, BlockNumber: 1}}, nil)
	assert.ErrorIs(t, err, gerror.ErrUnknownChain)
}

func TestShareSecretConditionally(t *testing.T) {
	readers := map[uint64]ChainReader{1: &steppingReader{}, 2: &steppingReader{}}
	secret := []byte("s1")

	t.Run("whitelist rejects", func(t *testing.T) {
		m := newTestManager(t, readers, staticWhitelist{resolverA: true}, 0)
		_, err := m.ShareSecretConditionally(context.Background(), "o1", time.Now(), secret, resolverB)
		assert.ErrorIs(t, err, gerror.ErrUnauthorizedResolver)
	})

	t.Run("empty whitelist", func(t *testing.T) {
		m := newTestManager(t, readers, staticWhitelist{}, 0)
		r, err := m.ShareSecretConditionally(context.Background(), "o1", time.Now(), secret, resolverB)
		require.NoError(t, err)
		assert.Equal(t, secret, r.Secret)
		assert.Equal(t, "o1", r.OrderID)
	})

	t.Run("waits for the delay", func(t *testing.T) {
		m := newTestManager(t, readers, staticWhitelist{resolverA: true}, 30*time.Millisecond)
		created := time.Now()
		r, err := m.ShareSecretConditionally(context.Background(), "o1", created, secret, resolverA)
		require.NoError(t, err)
		assert.False(t, r.ReleasedAt.Before(created.Add(30*time.Millisecond)))
	})

	t.Run("old order is released at once", func(t *testing.T) {
		m := newTestManager(t, readers, nil, time.Hour)
		m.clock = utils.NewTimeProviderFixedTime(time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC))
		_, err := m.ShareSecretConditionally(context.Background(), "o1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), secret, resolverA)
		require.NoError(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		m := newTestManager(t, readers, nil, time.Hour)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := m.ShareSecretConditionally(ctx, "o1", time.Now(), secret, resolverA)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("empty secret", func(t *testing.T) {
		m := newTestManager(t, readers, nil, 0)
		_, err := m.ShareSecretConditionally(context.Background(), "o1", time.Now(), nil, resolverA)
		assert.ErrorIs(t, err, gerror.ErrEmptySecret)
	})
}
